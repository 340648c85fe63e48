package fileindex_test

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openepidata/graph-etl/external/fileindex"
)

func TestLookup(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/index/index", r.URL.Path)
		assert.Equal(t, "confirmed_2020-03-15.csv", r.URL.Query().Get("file_name"))
		_, _ = w.Write([]byte(`{"records": [{
			"did": "dg.1234/abcd",
			"rev": "r1",
			"file_name": "confirmed_2020-03-15.csv",
			"size": 1024,
			"hashes": {"md5": "deadbeef"},
			"authz": ["/programs/open"]
		}]}`))
	}))
	defer ts.Close()

	doc, err := fileindex.New(ts.URL, "token").Lookup(context.Background(), "confirmed_2020-03-15.csv")
	assert.NoError(t, err)
	assert.Equal(t, "dg.1234/abcd", doc.DID)
	assert.Equal(t, "r1", doc.Rev)
	assert.Equal(t, int64(1024), doc.Size)
	assert.Equal(t, "deadbeef", doc.Hashes["md5"])
}

func TestLookupNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"records": []}`))
	}))
	defer ts.Close()

	_, err := fileindex.New(ts.URL, "").Lookup(context.Background(), "missing.csv")
	assert.Equal(t, fileindex.ErrNotFound, err)
}

func TestLookupRetriesTransientFailure(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"records": [{"did": "dg.1234/abcd", "rev": "r2"}]}`))
	}))
	defer ts.Close()

	doc, err := fileindex.New(ts.URL, "").Lookup(context.Background(), "flaky.csv")
	assert.NoError(t, err)
	assert.Equal(t, "dg.1234/abcd", doc.DID)
	assert.True(t, calls >= 2, "first attempt must have been retried")
}

func TestUpdateAuthz(t *testing.T) {
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "r1", r.URL.Query().Get("rev"))
		gotBody, _ = ioutil.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	err := fileindex.New(ts.URL, "").UpdateAuthz(context.Background(), "dg.1234/abcd", "r1", []string{"/open"})
	assert.NoError(t, err)

	var body map[string][]string
	assert.NoError(t, json.Unmarshal(gotBody, &body))
	assert.Equal(t, []string{"/open"}, body["authz"])
}
