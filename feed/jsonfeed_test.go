package feed_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openepidata/graph-etl/feed"
)

func TestFetchStateDaily(t *testing.T) {
	body := `[
		{"date": 20200315, "state": "IL", "positive": 105, "death": 0, "recovered": null},
		{"date": 20200315, "state": "NY", "positive": 729, "death": 3, "recovered": null}
	]`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer ts.Close()

	days, err := feed.NewClient(nil).FetchStateDaily("state_daily", ts.URL)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(days))

	assert.Equal(t, "IL", days[0].State)
	assert.NotNil(t, days[0].Confirmed)
	assert.Equal(t, int64(105), *days[0].Confirmed)
	assert.NotNil(t, days[0].Deaths)
	assert.Equal(t, int64(0), *days[0].Deaths)
	assert.Nil(t, days[0].Recovered, "null must stay nil, not become zero")

	date, err := days[0].NormalizedDate()
	assert.NoError(t, err)
	assert.Equal(t, "2020-03-15", date)
}

func TestParseStateDailyDrift(t *testing.T) {
	_, err := feed.ParseStateDaily("state_daily", []byte(`[{"day": 20200315, "region": "IL"}]`))
	assert.Error(t, err)
	_, ok := err.(*feed.SchemaDriftError)
	assert.True(t, ok, "expected SchemaDriftError")
}

func TestParseStateDailyPlaceholder(t *testing.T) {
	_, err := feed.ParseStateDaily("state_daily", []byte("404: Not Found"))
	assert.Error(t, err)
	_, ok := err.(*feed.SourceUnavailableError)
	assert.True(t, ok, "expected SourceUnavailableError")
}
