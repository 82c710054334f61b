// Package indiamart pulls buyer inquiries from the IndiaMART CRM listing API.
package indiamart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TimeLayout is the API's window timestamp format, e.g. 04-May-2026 10:00:00.
const TimeLayout = "02-Jan-2006 15:04:05"

// windowOverlap re-reads the tail of the previous window so boundary inquiries are not missed.
const windowOverlap = 5 * time.Minute

var ist = time.FixedZone("IST", 5*60*60+30*60)

// Credentials identify the seller account.
type Credentials struct {
	Mobile string
	Key    string
}

type listingRequest struct {
	Mobile    string `json:"glusr_mobile"`
	Key       string `json:"glusr_mobile_key"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
}

type listingResponse struct {
	Status   string            `json:"STATUS"`
	Code     json.RawMessage   `json:"CODE"`
	Message  string            `json:"MESSAGE"`
	Response []json.RawMessage `json:"RESPONSE"`
}

// Client calls the listing endpoint.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a Client for the listing URL.
func NewClient(url string) *Client {
	return &Client{url: url, http: &http.Client{Timeout: 30 * time.Second}}
}

// Window returns the request window for a sync. A first sync has no window.
func Window(lastSync *time.Time, now time.Time) (start, end string) {
	if lastSync == nil {
		return "", ""
	}
	return lastSync.Add(-windowOverlap).In(ist).Format(TimeLayout), now.In(ist).Format(TimeLayout)
}

// Fetch returns the raw inquiry objects since lastSync. "No Data Found" is an empty result, not an error.
func (c *Client) Fetch(ctx context.Context, creds Credentials, lastSync *time.Time, now time.Time) ([]json.RawMessage, error) {
	start, end := Window(lastSync, now)
	body, err := json.Marshal(listingRequest{Mobile: creds.Mobile, Key: creds.Key, StartTime: start, EndTime: end})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indiamart request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read indiamart response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indiamart returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed listingResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode indiamart response: %w", err)
	}
	if parsed.Status != "SUCCESS" {
		if isNoData(parsed) {
			return nil, nil
		}
		return nil, fmt.Errorf("indiamart error: %s", parsed.Message)
	}
	return parsed.Response, nil
}

func isNoData(r listingResponse) bool {
	code := strings.Trim(string(r.Code), `"`)
	return code == "404" || strings.Contains(r.Message, "No Data Found")
}
