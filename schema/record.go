package schema

const (
	TypeSummaryLocation = "summary_location"
	TypeSummaryClinical = "summary_clinical"
)

// Record - one typed entity destined for the remote metadata store. Records
// reference each other by {type, submitter_id}, so submission order across
// entity types matters.
type Record interface {
	RecordType() string
	RecordID() string
}

// RecordRef - a cross-record reference as the metadata store expects it.
type RecordRef struct {
	SubmitterID string `json:"submitter_id"`
}

// SummaryLocation - the graph node describing one geography.
type SummaryLocation struct {
	Type        string      `json:"type"`
	SubmitterID string      `json:"submitter_id"`
	Projects    []RecordRef `json:"projects"`
	CountryName string      `json:"country_region"`
	ISO2        string      `json:"iso2,omitempty"`
	ISO3        string      `json:"iso3,omitempty"`
	State       string      `json:"province_state,omitempty"`
	County      string      `json:"county,omitempty"`
	FIPS        string      `json:"FIPS,omitempty"`
	Latitude    string      `json:"latitude,omitempty"`
	Longitude   string      `json:"longitude,omitempty"`
	Population  int64       `json:"population,omitempty"`
}

func (s SummaryLocation) RecordType() string { return TypeSummaryLocation }
func (s SummaryLocation) RecordID() string   { return s.SubmitterID }

// SummaryClinical - the per-day clinical counts of one location. The
// Confirmed/Deaths/Recovered fields are pointers so "not reported" stays
// distinct from zero on the wire.
type SummaryClinical struct {
	Type             string      `json:"type"`
	SubmitterID      string      `json:"submitter_id"`
	Date             string      `json:"date"`
	Confirmed        *int64      `json:"confirmed,omitempty"`
	Deaths           *int64      `json:"deaths,omitempty"`
	Recovered        *int64      `json:"recovered,omitempty"`
	SummaryLocations []RecordRef `json:"summary_locations"`
}

func (s SummaryClinical) RecordType() string { return TypeSummaryClinical }
func (s SummaryClinical) RecordID() string   { return s.SubmitterID }
func (s SummaryClinical) RecordDate() string { return s.Date }
