package feed

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	log "github.com/sirupsen/logrus"
)

// LookupRow - one row of the fixed-header UID/ISO/FIPS lookup table used to
// enrich locations with population figures.
type LookupRow struct {
	UID         string  `csv:"UID"`
	ISO2        string  `csv:"iso2"`
	ISO3        string  `csv:"iso3"`
	FIPS        string  `csv:"FIPS"`
	County      string  `csv:"Admin2"`
	State       string  `csv:"Province_State"`
	Country     string  `csv:"Country_Region"`
	Latitude    float64 `csv:"Lat"`
	Longitude   float64 `csv:"Long_"`
	CombinedKey string  `csv:"Combined_Key"`
	Population  int64   `csv:"Population"`
}

// LookupTable indexes lookup rows by the (iso3, state, county) tuple.
type LookupTable struct {
	rows map[string]LookupRow
}

func lookupKey(iso3, state, county string) string {
	return iso3 + "|" + state + "|" + county
}

// Population returns the population for a geography tuple, zero when the
// table has no row for it.
func (t *LookupTable) Population(iso3, state, county string) int64 {
	if t == nil {
		return 0
	}
	return t.rows[lookupKey(iso3, state, county)].Population
}

// Len - number of indexed rows.
func (t *LookupTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// FetchLookupTable fetches and decodes the lookup table CSV.
func (c *Client) FetchLookupTable(url string) (*LookupTable, error) {
	log.WithFields(log.Fields{"prefix": logPrefix, "url": url}).Info("fetch lookup table")

	data, err := c.fetch(url)
	if nil != err {
		return nil, &SourceUnavailableError{Source: "lookup_table", Reason: err.Error()}
	}
	return ParseLookupTable(data)
}

// ParseLookupTable decodes an already fetched lookup table body.
func ParseLookupTable(data []byte) (*LookupTable, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	dec, err := csvutil.NewDecoder(reader)
	if err != nil {
		return nil, &SourceUnavailableError{Source: "lookup_table", Reason: err.Error()}
	}

	table := &LookupTable{rows: make(map[string]LookupRow)}
	for {
		var row LookupRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, &UnknownFieldValueError{Source: "lookup_table", Column: "row", Value: "", Err: err}
		}
		table.rows[lookupKey(row.ISO3, row.State, row.County)] = row
	}
	return table, nil
}
