package schema

// Location - one node of the geographic hierarchy. The submitter id is
// derived from the geography tuple and never changes once assigned.
type Location struct {
	CountryName string  `json:"country_region" bson:"country_region"`
	ISO2        string  `json:"iso2" bson:"iso2"`
	ISO3        string  `json:"iso3" bson:"iso3"`
	State       string  `json:"province_state" bson:"province_state"`
	County      string  `json:"county" bson:"county"`
	FIPS        string  `json:"fips" bson:"fips"`
	Latitude    float64 `json:"latitude" bson:"latitude"`
	Longitude   float64 `json:"longitude" bson:"longitude"`
	Population  int64   `json:"population" bson:"population"`
}

// SubmitterID - stable identifier of the summary_location node for this
// geography tuple.
func (l Location) SubmitterID() string {
	return LocationSubmitterID(l.ISO3, l.State, l.County)
}

// IsCountry reports whether the location is a country-level row.
func (l Location) IsCountry() bool {
	return l.State == "" && l.County == ""
}
