package schema

// Metric names shared by every source. A source file contributes a subset of
// these for each (location, date) key.
const (
	MetricConfirmed = "confirmed"
	MetricDeaths    = "deaths"
	MetricRecovered = "recovered"
)

// DateLayout - the normalized calendar-day format used everywhere after
// parsing. Lexicographic order equals chronological order.
const DateLayout = "2006-01-02"

// MetricSet maps metric name to its reported count for one day.
type MetricSet map[string]int64

// Clone returns an independent copy of the set.
func (m MetricSet) Clone() MetricSet {
	c := make(MetricSet, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// TimeSeriesPoint - the reported metrics of one location for one calendar
// day. At most one point exists per (location, date) pair; points from
// different source files merge per metric.
type TimeSeriesPoint struct {
	Date    string    `json:"date" bson:"date"`
	Metrics MetricSet `json:"metrics" bson:"metrics"`
}
