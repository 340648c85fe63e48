package etl

import (
	"strconv"

	"github.com/openepidata/graph-etl/schema"
)

// BuildRecords flattens the tree into graph records for submission:
// summary_location nodes first, then the per-day summary_clinical nodes that
// reference them. Clinical records past the dataset's effective latest date
// are withheld, the hierarchy is only as current as its slowest input.
func BuildRecords(t *Tree, projectCode string) (locations, clinicals []schema.Record) {
	latest := t.LatestDate()

	t.Walk(func(n *Node) {
		loc := n.Location
		locations = append(locations, schema.SummaryLocation{
			Type:        schema.TypeSummaryLocation,
			SubmitterID: loc.SubmitterID(),
			Projects:    []schema.RecordRef{{SubmitterID: projectCode}},
			CountryName: loc.CountryName,
			ISO2:        loc.ISO2,
			ISO3:        loc.ISO3,
			State:       loc.State,
			County:      loc.County,
			FIPS:        loc.FIPS,
			Latitude:    formatCoord(loc.Latitude),
			Longitude:   formatCoord(loc.Longitude),
			Population:  loc.Population,
		})

		for _, date := range t.Dates(n) {
			if latest != "" && date > latest {
				continue
			}
			metrics := t.Effective(n, date)
			if len(metrics) == 0 {
				continue
			}
			clinical := schema.SummaryClinical{
				Type:        schema.TypeSummaryClinical,
				SubmitterID: schema.ClinicalSubmitterID(loc.ISO3, loc.State, loc.County, date),
				Date:        date,
				SummaryLocations: []schema.RecordRef{
					{SubmitterID: loc.SubmitterID()},
				},
			}
			if v, ok := metrics[schema.MetricConfirmed]; ok {
				clinical.Confirmed = int64Ptr(v)
			}
			if v, ok := metrics[schema.MetricDeaths]; ok {
				clinical.Deaths = int64Ptr(v)
			}
			if v, ok := metrics[schema.MetricRecovered]; ok {
				clinical.Recovered = int64Ptr(v)
			}
			clinicals = append(clinicals, clinical)
		}
	})
	return locations, clinicals
}

func formatCoord(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func int64Ptr(v int64) *int64 {
	return &v
}
