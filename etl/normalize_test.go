package etl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openepidata/graph-etl/consts"
	"github.com/openepidata/graph-etl/etl"
	"github.com/openepidata/graph-etl/feed"
	"github.com/openepidata/graph-etl/schema"
)

func TestNormalizeFileGlobal(t *testing.T) {
	body := `Province/State,Country/Region,Lat,Long,3/14/20,3/15/20
,Iceland,64.9631,-19.0208,156,171
"Hubei",China,30.9756,112.2707,67790,67794
`
	src := feed.TimeSeriesSource{Name: "confirmed_global", Metric: schema.MetricConfirmed, Scope: feed.ScopeGlobal}
	pf, err := feed.ParseTimeSeries(src, []byte(body))
	assert.NoError(t, err)

	rows, err := etl.NormalizeFile(pf, nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(rows))

	iceland := rows[0]
	assert.Equal(t, "IS", iceland.Location.ISO2)
	assert.Equal(t, "ISL", iceland.Location.ISO3)
	assert.True(t, iceland.Location.IsCountry())
	assert.Equal(t, 2, len(iceland.Points))
	assert.Equal(t, int64(171), iceland.Points[1].Metrics[schema.MetricConfirmed])

	hubei := rows[1]
	assert.Equal(t, "CHN", hubei.Location.ISO3)
	assert.Equal(t, "Hubei", hubei.Location.State)
}

func TestNormalizeSkipsUnknownLocation(t *testing.T) {
	body := `Province/State,Country/Region,Lat,Long,3/15/20
"Unassigned",US,0.0,0.0,44
,Iceland,64.9631,-19.0208,171
`
	src := feed.TimeSeriesSource{Name: "confirmed_global", Metric: schema.MetricConfirmed, Scope: feed.ScopeGlobal}
	pf, err := feed.ParseTimeSeries(src, []byte(body))
	assert.NoError(t, err)

	rows, err := etl.NormalizeFile(pf, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(rows), "zero-coordinate buckets are not real geographies")
	assert.Equal(t, "ISL", rows[0].Location.ISO3)
}

func TestNormalizeEmptyValueNotZero(t *testing.T) {
	body := `Province/State,Country/Region,Lat,Long,3/14/20,3/15/20
,Iceland,64.9631,-19.0208,,171
`
	src := feed.TimeSeriesSource{Name: "confirmed_global", Metric: schema.MetricConfirmed, Scope: feed.ScopeGlobal}
	pf, err := feed.ParseTimeSeries(src, []byte(body))
	assert.NoError(t, err)

	rows, err := etl.NormalizeFile(pf, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(rows[0].Points), "an empty value means not reported, never zero")
	assert.Equal(t, "2020-03-15", rows[0].Points[0].Date)
}

func TestNormalizeBadCountFatal(t *testing.T) {
	body := `Province/State,Country/Region,Lat,Long,3/15/20
,Iceland,64.9631,-19.0208,oops
`
	src := feed.TimeSeriesSource{Name: "confirmed_global", Metric: schema.MetricConfirmed, Scope: feed.ScopeGlobal}
	pf, err := feed.ParseTimeSeries(src, []byte(body))
	assert.NoError(t, err)

	_, err = etl.NormalizeFile(pf, nil)
	assert.Error(t, err)
	_, ok := err.(*feed.UnknownFieldValueError)
	assert.True(t, ok, "a bad numeric coercion aborts the row's run")
}

func TestNormalizeUnknownCountryFatal(t *testing.T) {
	body := `Province/State,Country/Region,Lat,Long,3/15/20
,Atlantis,12.0,34.0,5
`
	src := feed.TimeSeriesSource{Name: "confirmed_global", Metric: schema.MetricConfirmed, Scope: feed.ScopeGlobal}
	pf, err := feed.ParseTimeSeries(src, []byte(body))
	assert.NoError(t, err)

	_, err = etl.NormalizeFile(pf, nil)
	assert.Error(t, err)
	_, ok := err.(*consts.UnknownCountryError)
	assert.True(t, ok, "unresolvable countries are never silently defaulted")
}

func TestNormalizePopulationFromLookup(t *testing.T) {
	lookup, err := feed.ParseLookupTable([]byte(lookupFixtureCSV))
	assert.NoError(t, err)

	body := `Province/State,Country/Region,Lat,Long,3/15/20
,Taiwan*,23.7,121.0,59
`
	src := feed.TimeSeriesSource{Name: "confirmed_global", Metric: schema.MetricConfirmed, Scope: feed.ScopeGlobal}
	pf, err := feed.ParseTimeSeries(src, []byte(body))
	assert.NoError(t, err)

	rows, err := etl.NormalizeFile(pf, lookup)
	assert.NoError(t, err)
	assert.Equal(t, int64(23816775), rows[0].Location.Population)
}

const lookupFixtureCSV = `UID,iso2,iso3,code3,FIPS,Admin2,Province_State,Country_Region,Lat,Long_,Combined_Key,Population
158,TW,TWN,158,,,,Taiwan*,23.7,121.0,Taiwan*,23816775
`

func TestNormalizeStateDaily(t *testing.T) {
	confirmed := int64(105)
	deaths := int64(2)
	days := []feed.StateDay{
		{Date: 20200315, State: "IL", Confirmed: &confirmed, Deaths: &deaths},
		{Date: 20200314, State: "IL", Confirmed: &confirmed},
	}

	rows, err := etl.NormalizeStateDaily("state_daily", days, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(rows))
	assert.Equal(t, "Illinois", rows[0].Location.State)
	assert.Equal(t, "USA", rows[0].Location.ISO3)
	assert.Equal(t, 2, len(rows[0].Points))
	assert.Equal(t, int64(2), rows[0].Points[0].Metrics[schema.MetricDeaths])

	days = append(days, feed.StateDay{Date: 20200315, State: "ZZ", Confirmed: &confirmed})
	_, err = etl.NormalizeStateDaily("state_daily", days, nil)
	assert.Error(t, err, "unknown state codes are fatal")
}

func TestNormalizeStateDailyMalformedDate(t *testing.T) {
	confirmed := int64(5)
	days := []feed.StateDay{
		{Date: 315, State: "IL", Confirmed: &confirmed},
	}

	_, err := etl.NormalizeStateDaily("state_daily", days, nil)
	assert.Error(t, err)
	fieldErr, ok := err.(*feed.UnknownFieldValueError)
	assert.True(t, ok, "expected UnknownFieldValueError")
	assert.Equal(t, "date", fieldErr.Column)
	assert.Equal(t, "315", fieldErr.Value, "the error carries the value that failed to parse")
}
