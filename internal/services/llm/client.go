package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"identarr/internal/config"
)

const (
	defaultTimeout = 60 * time.Second
	maxRetries     = 2
)

// Completer is the completion-service surface the pipeline consumes. The
// returned text carries no schema guarantee whatsoever; robustness to
// malformed output lives entirely on the caller's side.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client talks to an Ollama-compatible generation endpoint.
type Client struct {
	host       string
	model      string
	httpClient *http.Client
	logger     *logrus.Logger
}

var _ Completer = (*Client)(nil)

// NewClient creates a completion client.
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.LLMHost == "" {
		return nil, fmt.Errorf("LLM host is required")
	}
	if cfg.LLMModel == "" {
		return nil, fmt.Errorf("LLM model is required")
	}

	timeout := cfg.LLMTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		host:       strings.TrimRight(cfg.LLMHost, "/"),
		model:      cfg.LLMModel,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	// Temperature stays at zero so repeated disambiguation calls give the
	// same answer for the same input.
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Complete sends a prompt and returns the raw completion text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	var text string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("completion service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
			if resp.StatusCode >= 500 {
				return err
			}
			return backoff.Permanent(err)
		}

		var out generateResponse
		if err := json.Unmarshal(data, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		text = out.Response
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}

	c.logger.WithFields(logrus.Fields{
		"model":  c.model,
		"length": len(text),
	}).Debug("Completion received")

	return text, nil
}
