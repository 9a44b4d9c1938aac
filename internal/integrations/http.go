package integrations

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

const (
	defaultMaxResponseBody = 10 * 1024 * 1024 // 10MB
	defaultHTTPTimeout     = 30 * time.Second

	DefaultGmailBaseURL      = "https://gmail.googleapis.com"
	DefaultSlackBaseURL      = "https://slack.com/api"
	DefaultSheetsBaseURL     = "https://sheets.googleapis.com"
	DefaultHuggingFaceURL    = "https://api-inference.huggingface.co/models/cardiffnlp/twitter-roberta-base-sentiment-latest"
	defaultSentimentFallback = "neutral"
)

// HTTPConfig configures the HTTPAdapter. Empty base URLs fall back to the
// public endpoints.
type HTTPConfig struct {
	Timeout         time.Duration
	MaxResponseBody int64

	GmailBaseURL   string
	SlackBaseURL   string
	SheetsBaseURL  string
	HuggingFaceURL string
	HuggingFaceKey string

	// Client is the base client; its transport is reused under oauth2.
	Client *http.Client
}

// HTTPAdapter implements Adapter against the live service APIs.
type HTTPAdapter struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPAdapter creates an HTTPAdapter, filling defaults.
func NewHTTPAdapter(cfg HTTPConfig) *HTTPAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	if cfg.MaxResponseBody <= 0 {
		cfg.MaxResponseBody = defaultMaxResponseBody
	}
	if cfg.GmailBaseURL == "" {
		cfg.GmailBaseURL = DefaultGmailBaseURL
	}
	if cfg.SlackBaseURL == "" {
		cfg.SlackBaseURL = DefaultSlackBaseURL
	}
	if cfg.SheetsBaseURL == "" {
		cfg.SheetsBaseURL = DefaultSheetsBaseURL
	}
	if cfg.HuggingFaceURL == "" {
		cfg.HuggingFaceURL = DefaultHuggingFaceURL
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPAdapter{cfg: cfg, client: client}
}

// bearerClient wraps the base client with a static oauth2 token source.
func (a *HTTPAdapter) bearerClient(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)
	c := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	c.Timeout = a.cfg.Timeout
	return c
}

// SendEmail sends a plain-text message via the Gmail API.
func (a *HTTPAdapter) SendEmail(ctx context.Context, cred Credential, msg Email) (map[string]any, error) {
	raw := EncodeRawMessage(msg)
	endpoint := strings.TrimRight(a.cfg.GmailBaseURL, "/") + "/gmail/v1/users/me/messages/send"
	out, err := a.postJSON(ctx, a.bearerClient(ctx, cred.AccessToken), endpoint, map[string]any{"raw": raw})
	if err != nil {
		return nil, integrationErr("gmail", err)
	}
	return asMap(out), nil
}

// EncodeRawMessage renders msg as an RFC 822 message in URL-safe base64.
func EncodeRawMessage(msg Email) string {
	rfc822 := fmt.Sprintf("To: %s\nSubject: %s\n\n%s", msg.To, msg.Subject, msg.Body)
	return base64.URLEncoding.EncodeToString([]byte(rfc822))
}

// PostChatMessage posts text to a Slack channel with chat.postMessage.
func (a *HTTPAdapter) PostChatMessage(ctx context.Context, cred Credential, channel, text string) (map[string]any, error) {
	endpoint := strings.TrimRight(a.cfg.SlackBaseURL, "/") + "/chat.postMessage"
	out, err := a.postJSON(ctx, a.bearerClient(ctx, cred.AccessToken), endpoint, map[string]any{
		"channel": channel,
		"text":    text,
	})
	if err != nil {
		return nil, integrationErr("slack", err)
	}
	result := asMap(out)
	if ok, _ := result["ok"].(bool); !ok {
		return nil, schema.NewErrorf(schema.ErrCodeIntegration, "Slack error: %v", result["error"]).
			WithDetails(result)
	}
	return result, nil
}

// AppendRow appends one row of values to a Google Sheets range.
func (a *HTTPAdapter) AppendRow(ctx context.Context, cred Credential, spreadsheetID, rng string, values []any) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s:append?valueInputOption=RAW",
		strings.TrimRight(a.cfg.SheetsBaseURL, "/"), url.PathEscape(spreadsheetID), url.PathEscape(rng))
	if values == nil {
		values = []any{}
	}
	out, err := a.postJSON(ctx, a.bearerClient(ctx, cred.AccessToken), endpoint, map[string]any{
		"values": []any{values},
	})
	if err != nil {
		return nil, integrationErr("google sheets", err)
	}
	return asMap(out), nil
}

// HTTPRequest performs an arbitrary request. Non-2xx responses are errors.
func (a *HTTPAdapter) HTTPRequest(ctx context.Context, r HTTPRequest) (*HTTPResponse, error) {
	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodPost
	}
	u, err := url.ParseRequestURI(r.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "invalid url %q", r.URL)
	}

	var body io.Reader
	if r.Body != nil && method != http.MethodGet && method != http.MethodHead {
		switch b := r.Body.(type) {
		case string:
			body = strings.NewReader(b)
		case []byte:
			body = bytes.NewReader(b)
		default:
			encoded, err := json.Marshal(b)
			if err != nil {
				return nil, schema.NewError(schema.ErrCodeExecution, "failed to marshal request body").WithCause(err)
			}
			body = bytes.NewReader(encoded)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeExecution, "failed to create request").WithCause(err)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeIntegration, "request failed: %v", err).WithCause(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, a.cfg.MaxResponseBody))
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeIntegration, "failed to read response body").WithCause(err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	out := &HTTPResponse{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Data:       decodeBody(resp.Header.Get("Content-Type"), raw),
		Headers:    headers,
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, schema.NewErrorf(schema.ErrCodeIntegration, "HTTP %d: %s", out.Status, out.StatusText).
			WithDetails(out.Map())
	}
	return out, nil
}

// ClassifySentiment asks the HuggingFace model for sentiment scores and
// returns the highest-scoring label.
func (a *HTTPAdapter) ClassifySentiment(ctx context.Context, text string) (*Sentiment, error) {
	if a.cfg.HuggingFaceKey == "" {
		return nil, schema.NewError(schema.ErrCodeIntegrationMissing, "HuggingFace API key not configured")
	}
	out, err := a.postJSON(ctx, a.bearerClient(ctx, a.cfg.HuggingFaceKey), a.cfg.HuggingFaceURL, map[string]any{"inputs": text})
	if err != nil {
		return nil, integrationErr("huggingface", err)
	}
	return topSentiment(out), nil
}

// topSentiment accepts either [[{label,score}...]] or [{label,score}...].
func topSentiment(out any) *Sentiment {
	best := &Sentiment{Label: defaultSentimentFallback}
	list, _ := out.([]any)
	if len(list) > 0 {
		if inner, ok := list[0].([]any); ok {
			list = inner
		}
	}
	found := false
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		score, _ := m["score"].(float64)
		label, _ := m["label"].(string)
		if !found || score > best.Score {
			best = &Sentiment{Label: label, Score: score}
			found = true
		}
	}
	return best
}

// postJSON sends body as JSON and decodes a JSON response.
func (a *HTTPAdapter) postJSON(ctx context.Context, client *http.Client, endpoint string, body any) (any, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, a.cfg.MaxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

func decodeBody(contentType string, raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	if strings.Contains(contentType, "json") {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	}
	return string(raw)
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{"data": v}
}

func integrationErr(service string, err error) error {
	if _, ok := schema.AsError(err); ok {
		return err
	}
	return schema.NewErrorf(schema.ErrCodeIntegration, "%s: %v", service, err).WithCause(err)
}

var _ Adapter = (*HTTPAdapter)(nil)
