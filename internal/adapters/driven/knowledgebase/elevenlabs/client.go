// Package elevenlabs implements the knowledge base port against the
// ElevenLabs conversational AI API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driven"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.KnowledgeBase = (*Client)(nil)

const (
	defaultBaseURL = "https://api.elevenlabs.io"

	// baseTimeout is the floor for one API call; uploads add time
	// proportional to the payload because large documents take the
	// service longer to accept.
	baseTimeout      = 30 * time.Second
	timeoutPerKB     = 50 * time.Millisecond
	maxUploadTimeout = 5 * time.Minute
)

// ClientOptions configures the ElevenLabs client.
type ClientOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// RequestsPerSecond caps the request rate; the API rejects bursts.
	// Defaults to 4.
	RequestsPerSecond float64
}

// Client talks JSON over HTTP to the ElevenLabs knowledge base and agent
// endpoints. All calls are rate limited and retried on transient failures.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewClient creates an ElevenLabs client.
func NewClient(opts ClientOptions) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		// Per-request deadlines come from call contexts, not the client.
		httpClient = &http.Client{}
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 4
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
	}
}

// Upload stores content as a named text document and returns its id.
func (c *Client) Upload(ctx context.Context, name string, content []byte) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"name": name,
		"text": string(content),
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode document: %v", domain.ErrUploadFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout(len(content)))
	defer cancel()

	status, body, err := c.do(ctx, http.MethodPost, "/v1/convai/knowledge-base/text", payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}
	if status < 200 || status > 299 {
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrUploadFailed, status, apiError(body))
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.ID == "" {
		return "", fmt.Errorf("%w: response carried no document id", domain.ErrUploadFailed)
	}
	logger.Debug("elevenlabs: uploaded %s as %s", name, parsed.ID)
	return parsed.ID, nil
}

// Delete removes a knowledge base document.
func (c *Client) Delete(ctx context.Context, documentID string) error {
	ctx, cancel := context.WithTimeout(ctx, baseTimeout)
	defer cancel()

	status, body, err := c.do(ctx, http.MethodDelete, "/v1/convai/knowledge-base/"+documentID, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeleteFailed, err)
	}
	switch {
	case status >= 200 && status <= 299:
		return nil
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrRemoteNotFound, documentID)
	case status == http.StatusBadRequest && strings.Contains(strings.ToLower(apiError(body)), "agent"):
		// The API refuses to delete documents still attached to agents.
		return fmt.Errorf("%w: %s", domain.ErrHasDependents, documentID)
	default:
		return fmt.Errorf("%w: status %d: %s", domain.ErrDeleteFailed, status, apiError(body))
	}
}

// AssignBatch attaches documents to an agent's knowledge base, keeping
// documents the agent already holds.
func (c *Client) AssignBatch(ctx context.Context, agentID string, documentIDs []string) error {
	if len(documentIDs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, baseTimeout)
	defer cancel()

	existing, err := c.agentDocuments(ctx, agentID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAssignmentFailed, err)
	}

	merged := existing
	known := make(map[string]struct{}, len(existing))
	for _, doc := range existing {
		known[doc.ID] = struct{}{}
	}
	for _, id := range documentIDs {
		if _, ok := known[id]; ok {
			continue
		}
		known[id] = struct{}{}
		merged = append(merged, agentDocument{Type: "text", ID: id, UsageMode: "auto"})
	}

	payload, err := json.Marshal(map[string]any{
		"conversation_config": map[string]any{
			"agent": map[string]any{
				"prompt": map[string]any{
					"knowledge_base": merged,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: encode assignment: %v", domain.ErrAssignmentFailed, err)
	}

	status, body, err := c.do(ctx, http.MethodPatch, "/v1/convai/agents/"+agentID, payload)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAssignmentFailed, err)
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("%w: status %d: %s", domain.ErrAssignmentFailed, status, apiError(body))
	}
	logger.Debug("elevenlabs: assigned %d documents to agent %s", len(documentIDs), agentID)
	return nil
}

// VerifyIndexed reports the RAG indexing state of a document.
func (c *Client) VerifyIndexed(ctx context.Context, documentID string) (driven.IndexStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, baseTimeout)
	defer cancel()

	status, body, err := c.do(ctx, http.MethodGet, "/v1/convai/knowledge-base/"+documentID+"/rag-index", nil)
	if err != nil {
		return driven.StatusPending, err
	}
	if status == http.StatusNotFound {
		return driven.StatusPending, fmt.Errorf("%w: %s", domain.ErrRemoteNotFound, documentID)
	}
	if status < 200 || status > 299 {
		return driven.StatusPending, fmt.Errorf("rag index status %d: %s", status, apiError(body))
	}

	var parsed struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return driven.StatusPending, fmt.Errorf("decode rag index response: %w", err)
	}
	switch strings.ToLower(parsed.Status) {
	case "succeeded", "ready", "created":
		return driven.StatusReady, nil
	case "failed":
		return driven.StatusFailed, nil
	default:
		return driven.StatusPending, nil
	}
}

type agentDocument struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	UsageMode string `json:"usage_mode,omitempty"`
}

func (c *Client) agentDocuments(ctx context.Context, agentID string) ([]agentDocument, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/v1/convai/agents/"+agentID, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("fetch agent: status %d: %s", status, apiError(body))
	}

	var parsed struct {
		ConversationConfig struct {
			Agent struct {
				Prompt struct {
					KnowledgeBase []agentDocument `json:"knowledge_base"`
				} `json:"prompt"`
			} `json:"agent"`
		} `json:"conversation_config"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode agent: %w", err)
	}
	return parsed.ConversationConfig.Agent.Prompt.KnowledgeBase, nil
}

// do issues one rate-limited request with bounded retries on 429/5xx.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	endpoint := c.baseURL + path
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("xi-api-key", c.apiKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries {
				logger.Debug("elevenlabs: %s %s failed, retrying: %v", method, path, err)
				if waitErr := sleepContext(ctx, c.retryDelay(attempt+1)); waitErr != nil {
					return 0, nil, waitErr
				}
				continue
			}
			return 0, nil, err
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return 0, nil, readErr
		}

		if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599) {
			if attempt < c.maxRetries {
				logger.Debug("elevenlabs: %s %s returned %d, retrying", method, path, resp.StatusCode)
				if waitErr := sleepContext(ctx, c.retryDelay(attempt+1)); waitErr != nil {
					return 0, nil, waitErr
				}
				continue
			}
		}
		return resp.StatusCode, body, nil
	}
}

func (c *Client) retryDelay(attempt int) time.Duration {
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	return delay
}

func uploadTimeout(payloadLen int) time.Duration {
	timeout := baseTimeout + time.Duration(payloadLen/1024)*timeoutPerKB
	if timeout > maxUploadTimeout {
		return maxUploadTimeout
	}
	return timeout
}

func apiError(body []byte) string {
	var parsed struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != nil {
		switch detail := parsed.Detail.(type) {
		case string:
			return detail
		default:
			if encoded, err := json.Marshal(detail); err == nil {
				return string(encoded)
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
