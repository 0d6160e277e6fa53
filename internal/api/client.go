package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/banshee-data/nocap/internal/httputil"
	"github.com/banshee-data/nocap/internal/landmark"
)

// Client uploads archives to a running capture server.
type Client struct {
	BaseURL string
	HTTP    httputil.HTTPClient
}

// NewClient returns a client for the server at baseURL. A nil hc uses
// http.DefaultClient.
func NewClient(baseURL string, hc httputil.HTTPClient) *Client {
	if hc == nil {
		hc = httputil.NewStandardClient(nil)
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: hc}
}

// UploadArchive posts a to the archive endpoint and returns the id the
// server stored it under.
func (c *Client) UploadArchive(ctx context.Context, a landmark.Archive, label string) (string, error) {
	var body bytes.Buffer
	if err := landmark.WriteArchive(&body, a); err != nil {
		return "", err
	}

	endpoint := c.BaseURL + "/api/recordings"
	if label != "" {
		endpoint += "?label=" + url.QueryEscape(label)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload archive: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		var e httputil.ErrorBody
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return "", fmt.Errorf("upload archive: server returned %d: %s", resp.StatusCode, e.Error)
		}
		return "", fmt.Errorf("upload archive: server returned %d", resp.StatusCode)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return created.ID, nil
}
