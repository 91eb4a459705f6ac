package handlers

import (
	"net/http"
	"strings"
)

// GeolocationHandler handles geolocation endpoints.
type GeolocationHandler struct {
	resolver LocationResolver
}

// NewGeolocationHandler creates a new geolocation handler.
func NewGeolocationHandler(resolver LocationResolver) *GeolocationHandler {
	return &GeolocationHandler{resolver: resolver}
}

// Geocode handles GET /api/geocode?address=...
// Unresolvable addresses return the default location with a warning.
func (h *GeolocationHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		respondWithError(w, http.StatusBadRequest, "address parameter is required")
		return
	}

	location, err := h.resolver.Resolve(r.Context(), address, nil, nil)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	if location.Degraded {
		preventStore(w)
	}
	respondWithJSON(w, http.StatusOK, location)
}
