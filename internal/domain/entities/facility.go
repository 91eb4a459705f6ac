package entities

// QualityColumn names a quality metric column in the facility dataset
type QualityColumn string

const (
	ColumnTotalQuality       QualityColumn = "total_quality_points"
	ColumnHeartAttackQuality QualityColumn = "adj_total_heartattack"
	ColumnStrokeQuality      QualityColumn = "adj_total_stroke"
	ColumnPneumoniaQuality   QualityColumn = "adj_total_pneu"
)

// Dataset column names that are not quality metrics
const (
	ColumnName          = "hospital_name"
	ColumnAddress       = "detail_address"
	ColumnCity          = "detail_city"
	ColumnState         = "detail_state"
	ColumnZip           = "detail_zip"
	ColumnLatitude      = "lat"
	ColumnLongitude     = "lon"
	ColumnEDTime        = "detail_avg_time_in_ed_minutes"
	ColumnRating        = "detail_overall_patient_rating"
	ColumnMortalityText = "detail_mortality_overall_text"
	ColumnProcedures    = "Top_Procedures"
)

// Facility represents one emergency department in the dataset snapshot.
// Pointer fields are nil when the source value is missing or unparseable.
type Facility struct {
	Name                     string   `json:"hospital_name"`
	Address                  Address  `json:"address"`
	Latitude                 *float64 `json:"lat"`
	Longitude                *float64 `json:"lon"`
	TotalQualityPoints       *float64 `json:"total_quality_points"`
	HeartAttackQualityPoints *float64 `json:"adj_total_heartattack,omitempty"`
	StrokeQualityPoints      *float64 `json:"adj_total_stroke,omitempty"`
	PneumoniaQualityPoints   *float64 `json:"adj_total_pneu,omitempty"`
	// AvgTimeInEDMinutes uses zero as a placeholder for "unknown".
	AvgTimeInEDMinutes *float64 `json:"detail_avg_time_in_ed_minutes"`
	PatientRating      *float64 `json:"detail_overall_patient_rating"`
	MortalityText      string   `json:"detail_mortality_overall_text"`
	TopProcedures      string   `json:"top_procedures,omitempty"`
}

// Address represents a physical address
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

// Location represents geographical coordinates
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Located reports whether both coordinates are present.
func (f *Facility) Located() bool {
	return f.Latitude != nil && f.Longitude != nil
}

// Location returns the facility coordinates and whether they are present.
func (f *Facility) Location() (Location, bool) {
	if !f.Located() {
		return Location{}, false
	}
	return Location{Latitude: *f.Latitude, Longitude: *f.Longitude}, true
}

// QualityPoints returns the value of the given quality column.
func (f *Facility) QualityPoints(col QualityColumn) *float64 {
	switch col {
	case ColumnTotalQuality:
		return f.TotalQualityPoints
	case ColumnHeartAttackQuality:
		return f.HeartAttackQualityPoints
	case ColumnStrokeQuality:
		return f.StrokeQualityPoints
	case ColumnPneumoniaQuality:
		return f.PneumoniaQualityPoints
	default:
		return nil
	}
}

// KnownEDTime returns the ED time in minutes, treating zero as unknown.
func (f *Facility) KnownEDTime() (float64, bool) {
	if f.AvgTimeInEDMinutes == nil || *f.AvgTimeInEDMinutes == 0 {
		return 0, false
	}
	return *f.AvgTimeInEDMinutes, true
}

// Float returns a pointer to v. Used when building facilities in code.
func Float(v float64) *float64 {
	return &v
}
