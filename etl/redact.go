package etl

import (
	"fmt"
	"strconv"

	"github.com/openepidata/graph-etl/consts"
	"github.com/openepidata/graph-etl/schema"
)

// DefaultRedactionThreshold - counts below this never leave the system
// exactly in any published view.
const DefaultRedactionThreshold = 5

// Redactor suppresses small counts in externally published rollups. Values
// below the threshold are replaced by a sentinel string; values at or above
// it pass through exactly.
type Redactor struct {
	Threshold int64
}

// NewRedactor - redactor with the given disclosure threshold; zero or
// negative falls back to the default.
func NewRedactor(threshold int64) Redactor {
	if threshold <= 0 {
		threshold = DefaultRedactionThreshold
	}
	return Redactor{Threshold: threshold}
}

// Value - the published form of one count.
func (r Redactor) Value(v int64) string {
	if v < r.Threshold {
		return fmt.Sprintf("fewer than %d", r.Threshold)
	}
	return strconv.FormatInt(v, 10)
}

// Metrics - the published form of a metric set. Each metric is redacted on
// its own threshold check. Metrics not collected at the row's granularity
// are omitted entirely rather than shown as a misleading zero or sentinel.
func (r Redactor) Metrics(m schema.MetricSet, iso2 string, subNational bool) map[string]string {
	out := make(map[string]string, len(m))
	for metric, v := range m {
		if !consts.MetricCollected(metric, iso2, subNational) {
			continue
		}
		out[metric] = r.Value(v)
	}
	return out
}
