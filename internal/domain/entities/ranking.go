package entities

import "strings"

// Complaint is a chief-complaint category chosen by the user.
type Complaint string

const (
	ComplaintOverall           Complaint = "Overall"
	ComplaintChestPain         Complaint = "Chest Pain"
	ComplaintHeartAttack       Complaint = "Heart Attack"
	ComplaintSlurredSpeech     Complaint = "Slurred Speech"
	ComplaintFacialDroop       Complaint = "Facial Droop"
	ComplaintStroke            Complaint = "Stroke"
	ComplaintShortnessOfBreath Complaint = "Shortness of Breath"
	ComplaintTroubleBreathing  Complaint = "Trouble Breathing"
	ComplaintCough             Complaint = "Cough"
	ComplaintFever             Complaint = "Fever"
)

// Complaints lists every supported complaint in display order.
var Complaints = []Complaint{
	ComplaintOverall,
	ComplaintChestPain,
	ComplaintHeartAttack,
	ComplaintSlurredSpeech,
	ComplaintFacialDroop,
	ComplaintStroke,
	ComplaintShortnessOfBreath,
	ComplaintTroubleBreathing,
	ComplaintCough,
	ComplaintFever,
}

// ParseComplaint matches s case-insensitively against the supported
// complaints. Unrecognized input yields ComplaintOverall and false.
func ParseComplaint(s string) (Complaint, bool) {
	trimmed := strings.TrimSpace(s)
	for _, c := range Complaints {
		if strings.EqualFold(trimmed, string(c)) {
			return c, true
		}
	}
	return ComplaintOverall, false
}

// SortKey selects the ranking comparator.
type SortKey string

const (
	SortQuality   SortKey = "quality"
	SortEDTime    SortKey = "ed_time"
	SortRating    SortKey = "rating"
	SortMortality SortKey = "mortality"
	SortComposite SortKey = "composite"
)

// DefaultSortKey is used when the requested key is unknown.
const DefaultSortKey = SortQuality

// SortKeys lists the supported keys with their display labels.
var SortKeys = []struct {
	Key   SortKey `json:"key"`
	Label string  `json:"label"`
}{
	{SortQuality, "Quality"},
	{SortEDTime, "ED Time (min, lower is better)"},
	{SortRating, "Patient Rating"},
	{SortMortality, "Mortality"},
	{SortComposite, "Composite Score"},
}

var sortKeyAliases = map[string]SortKey{
	"quality":                       SortQuality,
	"adjusted_quality_points":       SortQuality,
	"total_quality_points":          SortQuality,
	"ed_time":                       SortEDTime,
	"ed-time":                       SortEDTime,
	"wait":                          SortEDTime,
	"detail_avg_time_in_ed_minutes": SortEDTime,
	"rating":                        SortRating,
	"detail_overall_patient_rating": SortRating,
	"mortality":                     SortMortality,
	"composite":                     SortComposite,
	"composite_score":               SortComposite,
}

// ParseSortKey resolves s, including the legacy column-name aliases.
// Unknown input yields DefaultSortKey and false.
func ParseSortKey(s string) (SortKey, bool) {
	if key, ok := sortKeyAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return key, true
	}
	return DefaultSortKey, false
}

// CompositeWeights configures the composite score blend.
type CompositeWeights struct {
	Quality   float64 `json:"quality"`
	Wait      float64 `json:"wait"`
	Rating    float64 `json:"rating"`
	Mortality float64 `json:"mortality"`
}

// DefaultCompositeWeights returns {0.40, 0.25, 0.20, 0.15}.
func DefaultCompositeWeights() CompositeWeights {
	return CompositeWeights{Quality: 0.40, Wait: 0.25, Rating: 0.20, Mortality: 0.15}
}
