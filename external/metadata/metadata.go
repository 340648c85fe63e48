package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	logPrefix      = "metadata"
	defaultTimeout = 5 * time.Minute

	// the remote store bounds its page size, larger asks are truncated
	queryPageSize = 1000
)

var (
	ErrEmptyEndpoint = fmt.Errorf("empty metadata endpoint")
)

// StatusError - a non-200 reply from the metadata store. The submitter
// treats any of these as retryable until its budget runs out.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("metadata store replied %d: %s", e.Code, e.Body)
}

// Client - project-scoped client of the remote graph metadata store.
type Client struct {
	endpoint string
	program  string
	project  string
	token    string
	http     *http.Client
}

// New - new metadata store client. A nil http client falls back to a
// dedicated one with a generous timeout, submissions of full batches can be
// slow on the remote side.
func New(endpoint, program, project, token string, httpClient *http.Client) (*Client, error) {
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		endpoint: endpoint,
		program:  program,
		project:  project,
		token:    token,
		http:     httpClient,
	}, nil
}

// ProjectID - the remote identifier of the destination project.
func (c *Client) ProjectID() string {
	return c.program + "-" + c.project
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if nil != err {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if nil != err {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 512)}
	}
	return body, nil
}

// PutRecords submits one batch of typed records to the project-scoped
// endpoint. Success is only an explicit 200; anything else is an error for
// the caller's retry discipline. Re-submitting an already accepted record
// with the same submitter id is an idempotent upsert on the remote side.
func (c *Client) PutRecords(ctx context.Context, records interface{}) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v0/submission/%s/%s", c.endpoint, c.program, c.project)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	_, err = c.do(req)
	return err
}

// Query runs one graph query and returns the raw content of the data
// envelope.
func (c *Client) Query(ctx context.Context, query string) (map[string]json.RawMessage, error) {
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, err
	}

	url := c.endpoint + "/api/v0/submission/graphql"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// ListSubmitterIDs enumerates every existing submitter id of one record type
// in the project, page by page.
func (c *Client) ListSubmitterIDs(ctx context.Context, recordType string) ([]string, error) {
	ids := make([]string, 0)
	offset := 0
	for {
		query := fmt.Sprintf(
			`{ %s (first: %d, offset: %d, project_id: %q) { submitter_id } }`,
			recordType, queryPageSize, offset, c.ProjectID())

		data, err := c.Query(ctx, query)
		if err != nil {
			return nil, err
		}

		raw, ok := data[recordType]
		if !ok {
			// nothing of this type submitted yet
			break
		}
		var page []struct {
			SubmitterID string `json:"submitter_id"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, err
		}
		for _, r := range page {
			ids = append(ids, r.SubmitterID)
		}
		if len(page) < queryPageSize {
			break
		}
		offset += queryPageSize
	}

	log.WithFields(log.Fields{"prefix": logPrefix, "type": recordType, "count": len(ids)}).Debug("listed remote submitter ids")
	return ids, nil
}

// ProjectField reads one field persisted on the destination project node,
// empty when the project carries no value yet.
func (c *Client) ProjectField(ctx context.Context, field string) (string, error) {
	query := fmt.Sprintf(`{ project (code: %q) { %s } }`, c.project, field)
	data, err := c.Query(ctx, query)
	if err != nil {
		return "", err
	}

	raw, ok := data["project"]
	if !ok {
		return "", nil
	}
	var projects []map[string]*string
	if err := json.Unmarshal(raw, &projects); err != nil {
		return "", err
	}
	if len(projects) == 0 || projects[0][field] == nil {
		return "", nil
	}
	return *projects[0][field], nil
}

// SetProjectField writes one field back onto the destination project node.
func (c *Client) SetProjectField(ctx context.Context, field, value string) error {
	record := map[string]interface{}{
		"type": "project",
		"code": c.project,
		field:  value,
	}
	return c.PutRecords(ctx, []map[string]interface{}{record})
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
