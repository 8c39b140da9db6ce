// Package moderation classifies poll content as safe or unsafe using the
// Gemini generateContent API. Callers own the failure policy: the client
// reports errors, it never decides them.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Verdict is the moderation outcome.
type Verdict string

const (
	VerdictSafe   Verdict = "SAFE"
	VerdictUnsafe Verdict = "UNSAFE"
)

const prompt = `You are a poll content moderator. Review the following question and options.
Reply with exactly 'SAFE' if the content is acceptable, or 'UNSAFE' if it contains insults, hate, explicit or otherwise inappropriate content.
Question: %s
Options: %s`

// Client calls the Gemini generateContent endpoint.
type Client struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	logger     *zap.Logger
}

// NewClient creates a Gemini moderation client.
func NewClient(apiKey, model, baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		logger:     logger,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Review classifies a poll's question and options. Any transport or
// decoding problem is returned as an error; only an explicit UNSAFE in
// the model reply yields VerdictUnsafe.
func (c *Client) Review(ctx context.Context, question string, options []string) (Verdict, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{
			Text: fmt.Sprintf(prompt, question, strings.Join(options, ", ")),
		}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call moderation api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("moderation api status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty moderation response")
	}

	text := strings.ToUpper(strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text))
	c.logger.Debug("moderation verdict", zap.String("text", text))
	if strings.Contains(text, string(VerdictUnsafe)) {
		return VerdictUnsafe, nil
	}
	return VerdictSafe, nil
}
