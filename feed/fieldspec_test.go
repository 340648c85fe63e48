package feed_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openepidata/graph-etl/feed"
)

func TestValidateSpecs(t *testing.T) {
	specs := []feed.FieldSpec{
		{Column: "Admin2", Field: feed.FieldCounty, Convert: feed.ToString},
		{Column: "FIPS", Field: feed.FieldFIPS, Convert: feed.ToFIPS},
	}

	columns, err := feed.ValidateSpecs("confirmed_US", specs, []string{"UID", "FIPS", "Admin2"})
	assert.NoError(t, err)
	assert.Equal(t, 1, columns["FIPS"])
	assert.Equal(t, 2, columns["Admin2"])

	_, err = feed.ValidateSpecs("confirmed_US", specs, []string{"UID", "Admin2"})
	assert.Error(t, err)
	_, ok := err.(*feed.SchemaDriftError)
	assert.True(t, ok, "missing spec column must fail as schema drift at startup")
}

func TestConverters(t *testing.T) {
	v, err := feed.ToInt("17.0")
	assert.NoError(t, err)
	assert.Equal(t, int64(17), v)

	v, err = feed.ToInt("42")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = feed.ToInt("")
	assert.Error(t, err)

	_, err = feed.ToInt("12.5")
	assert.Error(t, err)

	_, err = feed.ToInt("abc")
	assert.Error(t, err)

	v, err = feed.ToFIPS("17031.0")
	assert.NoError(t, err)
	assert.Equal(t, "17031", v)

	v, err = feed.ToFIPS("53")
	assert.NoError(t, err)
	assert.Equal(t, "00053", v)

	v, err = feed.ToFloat("")
	assert.NoError(t, err)
	assert.Equal(t, float64(0), v)
}
