package feed

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/openepidata/graph-etl/schema"
)

const logPrefix = "feed"

// sourceDateLayout - the m/d/yy form used by the wide time-series headers.
const sourceDateLayout = "1/2/06"

// Scope - which level of the hierarchy a time-series file reports.
type Scope string

const (
	ScopeGlobal   Scope = "global"
	ScopeUSCounty Scope = "us_county"
)

var globalHeaderPrefix = []string{"Province/State", "Country/Region", "Lat", "Long"}

var usHeaderPrefix = []string{
	"UID", "iso2", "iso3", "code3", "FIPS", "Admin2",
	"Province_State", "Country_Region", "Lat", "Long_", "Combined_Key",
}

// TimeSeriesSource - one wide CSV file: fixed descriptive columns followed by
// one column per calendar day.
type TimeSeriesSource struct {
	Name       string
	Metric     string
	Scope      Scope
	URL        string
	Population bool // file carries a Population column before the dates
}

// DefaultTimeSeriesSources - the standard five-file dataset: three global
// files plus the two finer-grained US county files.
func DefaultTimeSeriesSources(base string) []TimeSeriesSource {
	return []TimeSeriesSource{
		{Name: "confirmed_global", Metric: schema.MetricConfirmed, Scope: ScopeGlobal,
			URL: base + "/time_series_covid19_confirmed_global.csv"},
		{Name: "deaths_global", Metric: schema.MetricDeaths, Scope: ScopeGlobal,
			URL: base + "/time_series_covid19_deaths_global.csv"},
		{Name: "recovered_global", Metric: schema.MetricRecovered, Scope: ScopeGlobal,
			URL: base + "/time_series_covid19_recovered_global.csv"},
		{Name: "confirmed_US", Metric: schema.MetricConfirmed, Scope: ScopeUSCounty,
			URL: base + "/time_series_covid19_confirmed_US.csv"},
		{Name: "deaths_US", Metric: schema.MetricDeaths, Scope: ScopeUSCounty,
			URL: base + "/time_series_covid19_deaths_US.csv", Population: true},
	}
}

// HeaderPrefix - the fixed columns expected before the first date column.
func (s TimeSeriesSource) HeaderPrefix() []string {
	switch s.Scope {
	case ScopeUSCounty:
		prefix := usHeaderPrefix
		if s.Population {
			prefix = append(append([]string{}, prefix...), "Population")
		}
		return prefix
	default:
		return globalHeaderPrefix
	}
}

// FieldSpecs - the column bindings for the fixed part of the file.
func (s TimeSeriesSource) FieldSpecs() []FieldSpec {
	switch s.Scope {
	case ScopeUSCounty:
		specs := []FieldSpec{
			{Column: "iso2", Field: FieldISO2, Convert: ToString},
			{Column: "iso3", Field: FieldISO3, Convert: ToString},
			{Column: "FIPS", Field: FieldFIPS, Convert: ToFIPS},
			{Column: "Admin2", Field: FieldCounty, Convert: ToString},
			{Column: "Province_State", Field: FieldState, Convert: ToString},
			{Column: "Country_Region", Field: FieldCountry, Convert: ToString},
			{Column: "Lat", Field: FieldLatitude, Convert: ToFloat},
			{Column: "Long_", Field: FieldLongitude, Convert: ToFloat},
		}
		if s.Population {
			specs = append(specs, FieldSpec{Column: "Population", Field: FieldPopulation, Convert: ToInt})
		}
		return specs
	default:
		return []FieldSpec{
			{Column: "Province/State", Field: FieldState, Convert: ToString},
			{Column: "Country/Region", Field: FieldCountry, Convert: ToString},
			{Column: "Lat", Field: FieldLatitude, Convert: ToFloat},
			{Column: "Long", Field: FieldLongitude, Convert: ToFloat},
		}
	}
}

// DateColumn - one per-day column of a wide time-series file.
type DateColumn struct {
	Index int
	Date  string
}

// ParsedFile - a fetched, guarded and split time-series file ready for
// normalization. Rows hold raw field values; Columns maps spec columns to
// their header index.
type ParsedFile struct {
	Source      string
	Metric      string
	Scope       Scope
	Specs       []FieldSpec
	Columns     map[string]int
	DateColumns []DateColumn
	Rows        [][]string
}

// LatestDate - the newest date column the file carries, empty when the file
// has no date columns.
func (pf *ParsedFile) LatestDate() string {
	if len(pf.DateColumns) == 0 {
		return ""
	}
	return pf.DateColumns[len(pf.DateColumns)-1].Date
}

// Client - the per-run fetch context. Construct once per run and share; the
// zero value is not usable.
type Client struct {
	http *http.Client
}

// NewClient - new feed client on top of the given http client.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{http: httpClient}
}

func (c *Client) fetch(url string) ([]byte, error) {
	resp, err := c.http.Get(url)
	if nil != err {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode, url)
	}
	return ioutil.ReadAll(resp.Body)
}

// FetchTimeSeries fetches one wide CSV source, validates its header against
// the fixed expectation and splits the date columns.
func (c *Client) FetchTimeSeries(src TimeSeriesSource) (*ParsedFile, error) {
	log.WithFields(log.Fields{"prefix": logPrefix, "source": src.Name, "url": src.URL}).Info("fetch time series")

	data, err := c.fetch(src.URL)
	if nil != err {
		return nil, &SourceUnavailableError{Source: src.Name, Reason: err.Error()}
	}
	return ParseTimeSeries(src, data)
}

// ParseTimeSeries guards and splits an already fetched file body.
func ParseTimeSeries(src TimeSeriesSource, data []byte) (*ParsedFile, error) {
	// the default reader rejects ragged rows, a truncated row must fail the
	// file rather than silently lose its newest date columns
	reader := csv.NewReader(bytes.NewReader(data))

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &SourceUnavailableError{Source: src.Name, Reason: err.Error()}
	}
	if len(records) == 0 {
		return nil, &SourceUnavailableError{Source: src.Name, Reason: "empty body"}
	}

	header := records[0]
	prefix := src.HeaderPrefix()
	if err := Guard(src.Name, prefix, header); err != nil {
		return nil, err
	}

	specs := src.FieldSpecs()
	columns, err := ValidateSpecs(src.Name, specs, header)
	if err != nil {
		return nil, err
	}

	dateColumns := make([]DateColumn, 0, len(header)-len(prefix))
	for i := len(prefix); i < len(header); i++ {
		t, err := time.Parse(sourceDateLayout, header[i])
		if err != nil {
			return nil, &SchemaDriftError{Source: src.Name, Expected: []string{"m/d/yy date column"}, Got: []string{header[i]}}
		}
		dateColumns = append(dateColumns, DateColumn{Index: i, Date: t.Format(schema.DateLayout)})
	}

	return &ParsedFile{
		Source:      src.Name,
		Metric:      src.Metric,
		Scope:       src.Scope,
		Specs:       specs,
		Columns:     columns,
		DateColumns: dateColumns,
		Rows:        records[1:],
	}, nil
}
