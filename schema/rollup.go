package schema

const (
	RollupCollection = "rollups"
)

// RollupDoc - one archived effective value of a hierarchy node for one day,
// as stored in mongodb by the ETL run and served by the publish API.
type RollupDoc struct {
	RunID       string    `json:"run_id" bson:"run_id"`
	SubmitterID string    `json:"submitter_id" bson:"submitter_id"`
	CountryName string    `json:"country_region" bson:"country_region"`
	ISO2        string    `json:"iso2" bson:"iso2"`
	ISO3        string    `json:"iso3" bson:"iso3"`
	State       string    `json:"province_state" bson:"province_state"`
	County      string    `json:"county" bson:"county"`
	Date        string    `json:"date" bson:"date"`
	Metrics     MetricSet `json:"metrics" bson:"metrics"`
	UpdateTime  int64     `json:"update_ts" bson:"update_ts"`
}
