package etl

import (
	"math"
	"strconv"
	"strings"

	"github.com/openepidata/graph-etl/consts"
	"github.com/openepidata/graph-etl/feed"
	"github.com/openepidata/graph-etl/schema"
)

const logPrefix = "etl"

// NormalizedRow - one source row turned into a typed location plus its
// per-day points for the file's metric.
type NormalizedRow struct {
	Location schema.Location
	Points   []schema.TimeSeriesPoint
}

// NormalizeFile converts every row of a parsed time-series file. A
// conversion failure or unresolvable country aborts the run; rows whose
// coordinates both round to zero are the "unassigned" buckets and are
// excluded from the output set.
func NormalizeFile(pf *feed.ParsedFile, lookup *feed.LookupTable) ([]NormalizedRow, error) {
	rows := make([]NormalizedRow, 0, len(pf.Rows))
	for _, raw := range pf.Rows {
		row, err := normalizeRow(pf, raw, lookup)
		if err != nil {
			return nil, err
		}
		if row != nil {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

func normalizeRow(pf *feed.ParsedFile, raw []string, lookup *feed.LookupTable) (*NormalizedRow, error) {
	fields := make(map[string]interface{}, len(pf.Specs))
	for _, spec := range pf.Specs {
		i := pf.Columns[spec.Column]
		if strings.TrimSpace(raw[i]) == "" {
			// absent optional field, not a conversion failure
			continue
		}
		v, err := spec.Convert(raw[i])
		if err != nil {
			return nil, &feed.UnknownFieldValueError{Source: pf.Source, Column: spec.Column, Value: raw[i], Err: err}
		}
		fields[spec.Field] = v
	}

	loc, err := buildLocation(fields)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, nil
	}

	if lookup != nil && loc.Population == 0 {
		loc.Population = lookup.Population(loc.ISO3, loc.State, loc.County)
	}

	points := make([]schema.TimeSeriesPoint, 0, len(pf.DateColumns))
	for _, dc := range pf.DateColumns {
		v := strings.TrimSpace(raw[dc.Index])
		if v == "" {
			// not reported for this date, never recorded as zero
			continue
		}
		count, err := feed.ToInt(v)
		if err != nil {
			return nil, &feed.UnknownFieldValueError{Source: pf.Source, Column: dc.Date, Value: v, Err: err}
		}
		points = append(points, schema.TimeSeriesPoint{
			Date:    dc.Date,
			Metrics: schema.MetricSet{pf.Metric: count.(int64)},
		})
	}

	return &NormalizedRow{Location: *loc, Points: points}, nil
}

// buildLocation assembles a location from canonical field names; which
// fields are present depends on the source's specs, not on any per-source
// branching here.
func buildLocation(fields map[string]interface{}) (*schema.Location, error) {
	name, _ := fields[feed.FieldCountry].(string)
	code, err := consts.CountryCodes(name)
	if err != nil {
		return nil, err
	}

	loc := &schema.Location{CountryName: name}
	loc.ISO2, _ = fields[feed.FieldISO2].(string)
	loc.ISO3, _ = fields[feed.FieldISO3].(string)
	if loc.ISO2 == "" {
		loc.ISO2 = code.ISO2
	}
	if loc.ISO3 == "" {
		loc.ISO3 = code.ISO3
	}
	loc.State, _ = fields[feed.FieldState].(string)
	loc.County, _ = fields[feed.FieldCounty].(string)
	loc.FIPS, _ = fields[feed.FieldFIPS].(string)
	loc.Latitude, _ = fields[feed.FieldLatitude].(float64)
	loc.Longitude, _ = fields[feed.FieldLongitude].(float64)
	if pop, ok := fields[feed.FieldPopulation].(int64); ok {
		loc.Population = pop
	}

	// rows whose coordinates both round to zero are "unassigned"/"out of
	// state" buckets, not real geographies
	if math.Round(loc.Latitude) == 0 && math.Round(loc.Longitude) == 0 {
		return nil, nil
	}
	return loc, nil
}

// NormalizeStateDaily converts the government JSON endpoint's per-state days
// into state-level rows for the US hierarchy.
func NormalizeStateDaily(source string, days []feed.StateDay, lookup *feed.LookupTable) ([]NormalizedRow, error) {
	byState := make(map[string]*NormalizedRow)
	order := make([]string, 0)

	code, err := consts.CountryCodes("US")
	if err != nil {
		return nil, err
	}

	for _, day := range days {
		stateName, err := consts.USStateName(day.State)
		if err != nil {
			return nil, &feed.UnknownFieldValueError{Source: source, Column: "state", Value: day.State, Err: err}
		}

		date, err := day.NormalizedDate()
		if err != nil {
			return nil, &feed.UnknownFieldValueError{Source: source, Column: "date", Value: strconv.Itoa(day.Date), Err: err}
		}

		metrics := schema.MetricSet{}
		if day.Confirmed != nil {
			metrics[schema.MetricConfirmed] = *day.Confirmed
		}
		if day.Deaths != nil {
			metrics[schema.MetricDeaths] = *day.Deaths
		}
		if day.Recovered != nil {
			metrics[schema.MetricRecovered] = *day.Recovered
		}
		if len(metrics) == 0 {
			continue
		}

		row, ok := byState[day.State]
		if !ok {
			row = &NormalizedRow{
				Location: schema.Location{
					CountryName: "US",
					ISO2:        code.ISO2,
					ISO3:        code.ISO3,
					State:       stateName,
				},
			}
			if lookup != nil {
				row.Location.Population = lookup.Population(code.ISO3, stateName, "")
			}
			byState[day.State] = row
			order = append(order, day.State)
		}
		row.Points = append(row.Points, schema.TimeSeriesPoint{Date: date, Metrics: metrics})
	}

	rows := make([]NormalizedRow, 0, len(order))
	for _, st := range order {
		rows = append(rows, *byState[st])
	}
	return rows, nil
}
