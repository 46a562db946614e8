package searchconsole

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"BulletinBriefs/internal/config"
	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/ports"
)

// Client talks to the search-engine indexing and URL inspection APIs.
type Client struct {
	indexingURL   string
	inspectionURL string
	siteURL       string
	token         string
	http          *http.Client
}

var (
	_ ports.Indexer        = (*Client)(nil)
	_ ports.IndexInspector = (*Client)(nil)
)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.SearchConsoleConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		indexingURL:   strings.TrimRight(cfg.IndexingURL, "/"),
		inspectionURL: strings.TrimRight(cfg.InspectionURL, "/"),
		siteURL:       cfg.SiteURL,
		token:         cfg.AccessToken,
		http:          httpClient,
	}
}

// RequestIndexing notifies the indexing API that url was updated.
func (c *Client) RequestIndexing(ctx context.Context, url string) error {
	payload := map[string]string{
		"url":  url,
		"type": "URL_UPDATED",
	}
	if err := c.post(ctx, c.indexingURL+"/urlNotifications:publish", payload, nil); err != nil {
		return fmt.Errorf("request indexing %s: %w", url, err)
	}
	return nil
}

type inspectResponse struct {
	InspectionResult struct {
		IndexStatusResult struct {
			Verdict       string `json:"verdict"`
			CoverageState string `json:"coverageState"`
		} `json:"indexStatusResult"`
	} `json:"inspectionResult"`
}

// InspectIndexStatus asks the URL inspection API whether url is indexed.
func (c *Client) InspectIndexStatus(ctx context.Context, url string) (domain.GSCStatus, error) {
	payload := map[string]string{
		"inspectionUrl": url,
		"siteUrl":       c.siteURL,
	}

	var resp inspectResponse
	if err := c.post(ctx, c.inspectionURL+"/urlInspection/index:inspect", payload, &resp); err != nil {
		return domain.GSCPending, fmt.Errorf("inspect %s: %w", url, err)
	}

	if strings.EqualFold(resp.InspectionResult.IndexStatusResult.Verdict, "PASS") {
		return domain.GSCIndexed, nil
	}
	return domain.GSCNotIndexed, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	if v == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
