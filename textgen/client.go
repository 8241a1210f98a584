package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
)

// Client rewrites canonical reply text into friendlier phrasing via an
// external text service. The service is strictly cosmetic: any failure,
// timeout, or missing configuration returns the canonical text unchanged, and
// nothing downstream depends on the rewrite.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 4 * time.Second},
		endpoint:   os.Getenv("TEXTGEN_ENDPOINT"),
		apiKey:     os.Getenv("TEXTGEN_API_KEY"),
	}
}

func (c *Client) Enabled() bool {
	return c.endpoint != ""
}

type rewriteRequest struct {
	Text string `json:"text"`
}

type rewriteResponse struct {
	Text string `json:"text"`
}

// Polish returns the rewritten text, or the input on any failure.
func (c *Client) Polish(ctx context.Context, text string) string {
	if !c.Enabled() || text == "" {
		return text
	}

	body, err := json.Marshal(rewriteRequest{Text: text})
	if err != nil {
		return text
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return text
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		config.LogError(config.GetLogger(), "client.go", "Polish", "httpClient.Do", "", err)
		return text
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return text
	}

	var out rewriteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Text == "" {
		return text
	}
	return out.Text
}
