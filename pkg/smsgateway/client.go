// Package smsgateway provides a client for the SMS Gateway for Android API.
package smsgateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.smstext.app"

// Client sends SMS messages through a paired Android device.
type Client interface {
	Send(ctx context.Context, to, text string) error
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default gateway base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates an SMS Gateway for Android client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type message struct {
	Mobile string `json:"mobile"`
	Text   string `json:"text"`
}

func (c *httpClient) Send(ctx context.Context, to, text string) error {
	// The push endpoint takes a batch even for a single message.
	payload, err := json.Marshal([]message{{Mobile: to, Text: text}})
	if err != nil {
		return eris.Wrap(err, "smsgateway: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/push", bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "smsgateway: create request")
	}

	auth := base64.StdEncoding.EncodeToString([]byte("apikey:" + c.apiKey))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "smsgateway: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return eris.Errorf("smsgateway: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
