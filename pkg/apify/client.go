// Package apify provides a client for the Apify dataset and actor APIs.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.apify.com/v2"

// Item is a raw dataset record. Field shapes vary per actor, so items
// stay untyped until the caller maps them.
type Item map[string]any

// Client defines the Apify operations used by the pipeline.
type Client interface {
	// DatasetItems fetches clean JSON items from a dataset starting at offset.
	// A limit of 0 requests the API default.
	DatasetItems(ctx context.Context, datasetID string, offset, limit int) ([]Item, error)
	// RunActorSync starts an actor run, waits for it to finish, and returns
	// the items of its default dataset.
	RunActorSync(ctx context.Context, actorID string, input any) ([]Item, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates an Apify API client.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		// Synchronous actor runs block until the scrape completes.
		http: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) DatasetItems(ctx context.Context, datasetID string, offset, limit int) ([]Item, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("clean", "1")
	params.Set("offset", strconv.Itoa(offset))
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	reqURL := fmt.Sprintf("%s/datasets/%s/items?%s", c.baseURL, url.PathEscape(datasetID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "apify: create dataset request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.doItems(req, "dataset items")
}

func (c *httpClient) RunActorSync(ctx context.Context, actorID string, input any) ([]Item, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "apify: marshal actor input")
	}

	reqURL := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items", c.baseURL, url.PathEscape(actorID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "apify: create actor request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	return c.doItems(req, "actor run")
}

func (c *httpClient) doItems(req *http.Request, op string) ([]Item, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "apify: %s request failed", op)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "apify: read %s response", op)
	}

	// run-sync-get-dataset-items reports 201 on a successful run.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, eris.Errorf("apify: %s unexpected status %d: %s", op, resp.StatusCode, string(body))
	}

	var items []Item
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, eris.Wrapf(err, "apify: unmarshal %s response", op)
	}

	return items, nil
}
