package feed

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Canonical target field names shared by every source.
const (
	FieldISO2       = "iso2"
	FieldISO3       = "iso3"
	FieldFIPS       = "fips"
	FieldCounty     = "county"
	FieldState      = "province_state"
	FieldCountry    = "country_region"
	FieldLatitude   = "latitude"
	FieldLongitude  = "longitude"
	FieldPopulation = "population"
)

// Converter coerces one raw field value into its typed form.
type Converter func(value string) (interface{}, error)

// FieldSpec binds one source column to a canonical target field together
// with its typed converter. Sources name the same field differently
// ("Admin2" vs nothing, "Long" vs "Long_"); downstream code only ever sees
// the Field name. Specs are validated against the source's expected header
// at startup so a mismatch fails immediately, not at first use.
type FieldSpec struct {
	Column  string
	Field   string
	Convert Converter
}

// ValidateSpecs checks every spec column against the header and returns the
// header index of each spec's column.
func ValidateSpecs(source string, specs []FieldSpec, header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(col)] = i
	}

	columns := make(map[string]int, len(specs))
	for _, spec := range specs {
		i, ok := index[spec.Column]
		if !ok {
			return nil, &SchemaDriftError{
				Source:   source,
				Expected: []string{spec.Column},
				Got:      header,
			}
		}
		columns[spec.Column] = i
	}
	return columns, nil
}

// ToString passes the trimmed value through unchanged.
func ToString(value string) (interface{}, error) {
	return strings.TrimSpace(value), nil
}

// ToInt coerces a count column. Some sources format integral counts as
// floats ("17.0"), so parse through float and reject fractional values.
func ToInt(value string) (interface{}, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, fmt.Errorf("empty value")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("not an integral count: %s", v)
	}
	return int64(f), nil
}

// ToFloat coerces a coordinate column.
func ToFloat(value string) (interface{}, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return float64(0), nil
	}
	return strconv.ParseFloat(v, 64)
}

// ToFIPS coerces a county FIPS column, which some sources serialize as a
// float ("17031.0"), into the canonical zero-padded 5 digit form.
func ToFIPS(value string) (interface{}, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("%05d", int64(f)), nil
}
