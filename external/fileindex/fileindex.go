package fileindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	log "github.com/sirupsen/logrus"
)

const (
	logPrefix = "fileindex"

	// index lookups contend with concurrent writers on the remote side, so
	// the client backs off exponentially on its own
	defaultRetryMax  = 5
	defaultRetryWait = 500 * time.Millisecond
	defaultRetryCap  = 16 * time.Second
)

var (
	ErrNotFound = fmt.Errorf("file not indexed")
)

// Document - the index entry of one logical file: identity and content hash,
// never the raw bytes.
type Document struct {
	DID      string            `json:"did"`
	Rev      string            `json:"rev"`
	FileName string            `json:"file_name"`
	Size     int64             `json:"size"`
	Hashes   map[string]string `json:"hashes"`
	Authz    []string          `json:"authz"`
}

// Client - file index service client with built-in exponential backoff.
type Client struct {
	endpoint string
	token    string
	http     *retryablehttp.Client
}

// New - new file index client.
func New(endpoint, token string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = defaultRetryMax
	rc.RetryWaitMin = defaultRetryWait
	rc.RetryWaitMax = defaultRetryCap
	rc.Logger = nil

	return &Client{
		endpoint: endpoint,
		token:    token,
		http:     rc,
	}
}

func (c *Client) do(req *retryablehttp.Request) ([]byte, error) {
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
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file index replied %d", resp.StatusCode)
	}
	return body, nil
}

// Lookup resolves a logical file name to its index document.
func (c *Client) Lookup(ctx context.Context, fileName string) (*Document, error) {
	u := fmt.Sprintf("%s/index/index?file_name=%s", c.endpoint, url.QueryEscape(fileName))
	req, err := retryablehttp.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Records []Document `json:"records"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Records) == 0 {
		return nil, ErrNotFound
	}

	doc := envelope.Records[0]
	log.WithFields(log.Fields{"prefix": logPrefix, "file": fileName, "did": doc.DID}).Debug("resolved file index entry")
	return &doc, nil
}

// UpdateAuthz rewrites the authorization scope of an indexed file. The
// revision guards against concurrent updates.
func (c *Client) UpdateAuthz(ctx context.Context, did, rev string, authz []string) error {
	payload, err := json.Marshal(map[string]interface{}{"authz": authz})
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/index/index/%s?rev=%s", c.endpoint, url.PathEscape(did), url.QueryEscape(rev))
	req, err := retryablehttp.NewRequest(http.MethodPut, u, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req = req.WithContext(ctx)

	_, err = c.do(req)
	return err
}
