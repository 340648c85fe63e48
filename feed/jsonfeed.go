package feed

import (
	"encoding/json"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// StateDay - one state's counts for one day as reported by the government
// JSON endpoint. Null counts stay nil: "not reported" is not zero.
type StateDay struct {
	Date      int    `json:"date"`
	State     string `json:"state"`
	Confirmed *int64 `json:"positive"`
	Deaths    *int64 `json:"death"`
	Recovered *int64 `json:"recovered"`
}

// NormalizedDate converts the endpoint's 20200315 form into the normalized
// calendar-day form.
func (d StateDay) NormalizedDate() (string, error) {
	s := fmt.Sprintf("%d", d.Date)
	if len(s) != 8 {
		return "", fmt.Errorf("malformed date %d", d.Date)
	}
	return s[0:4] + "-" + s[4:6] + "-" + s[6:8], nil
}

// jsonFeedRequiredKeys - the documented shape of one element. Any deviation
// is schema drift, never best-effort parsed.
var jsonFeedRequiredKeys = []string{"date", "state", "positive"}

// FetchStateDaily fetches the per-state daily JSON endpoint and guards its
// shape before decoding.
func (c *Client) FetchStateDaily(name, url string) ([]StateDay, error) {
	log.WithFields(log.Fields{"prefix": logPrefix, "source": name, "url": url}).Info("fetch state daily json")

	data, err := c.fetch(url)
	if nil != err {
		return nil, &SourceUnavailableError{Source: name, Reason: err.Error()}
	}
	return ParseStateDaily(name, data)
}

// ParseStateDaily guards and decodes an already fetched body.
func ParseStateDaily(name string, data []byte) ([]StateDay, error) {
	if isPlaceholderBody(string(data)) {
		return nil, &SourceUnavailableError{Source: name, Reason: strings.TrimSpace(string(data))}
	}

	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &SchemaDriftError{Source: name, Expected: jsonFeedRequiredKeys, Got: []string{"non-array body"}}
	}
	if len(raw) > 0 {
		got := make([]string, 0, len(raw[0]))
		for k := range raw[0] {
			got = append(got, k)
		}
		for _, key := range jsonFeedRequiredKeys {
			if _, ok := raw[0][key]; !ok {
				return nil, &SchemaDriftError{Source: name, Expected: jsonFeedRequiredKeys, Got: got}
			}
		}
	}

	var days []StateDay
	if err := json.Unmarshal(data, &days); err != nil {
		return nil, &SchemaDriftError{Source: name, Expected: jsonFeedRequiredKeys, Got: []string{err.Error()}}
	}
	return days, nil
}
