// Package appscript posts contact submissions to a Google Apps Script web app
// that appends them to a spreadsheet on its side.
// Uses raw HTTP calls; the script is a plain form endpoint.
package appscript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kataria/backend/internal/model"
)

// ErrNotConfigured は script URL が設定されていない場合のエラー
var ErrNotConfigured = errors.New("appscript: not configured")

// maxResponseBytes bounds how much of the script's reply is read.
const maxResponseBytes = 64 << 10

// Client は Apps Script web app への raw HTTP クライアント
type Client struct {
	ScriptURL  string
	httpClient *http.Client
}

// NewClient creates a Client for the deployed script URL.
func NewClient(scriptURL string) *Client {
	return &Client{
		ScriptURL:  scriptURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Name() string     { return "appscript" }
func (c *Client) Configured() bool { return c.ScriptURL != "" }

// Write posts the submission form-encoded. The script answers
// {"result":"success"} on success; anything else is a failure.
func (c *Client) Write(ctx context.Context, s *model.ContactSubmission) error {
	if c.ScriptURL == "" {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ScriptURL,
		strings.NewReader(FormValues(s).Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("appscript: post: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("appscript: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("appscript: unexpected status %d", resp.StatusCode)
	}

	var result struct {
		Result string `json:"result"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("appscript: non-json response: %w", err)
	}
	if result.Result != "success" {
		if result.Error != "" {
			return fmt.Errorf("appscript: script error: %s", result.Error)
		}
		return fmt.Errorf("appscript: result %q", result.Result)
	}
	return nil
}

// FormValues is the field set the script reads.
func FormValues(s *model.ContactSubmission) url.Values {
	referrer := s.ReferralSource
	if referrer == "" {
		referrer = "Direct"
	}
	v := url.Values{}
	v.Set("submissionId", s.SubmissionID)
	v.Set("timestamp", s.SubmittedAt.UTC().Format(time.RFC3339Nano))
	v.Set("name", s.Name)
	v.Set("email", s.Email)
	v.Set("phone", s.Phone)
	v.Set("message", s.Message)
	v.Set("userAgent", s.UserAgent)
	v.Set("referrer", referrer)
	v.Set("source", referrer)
	v.Set("storageBackend", string(s.StorageBackend))
	return v
}
