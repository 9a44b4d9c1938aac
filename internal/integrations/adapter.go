// Package integrations talks to the third-party services a workflow step can
// act on: Gmail, Slack, Google Sheets, arbitrary HTTP endpoints and the
// HuggingFace inference API.
package integrations

import "context"

// Credential is a decrypted integration token ready for an outbound call.
type Credential struct {
	IntegrationID string
	Provider      string
	AccessToken   string
	RefreshToken  string
	Config        map[string]any
}

// Email is a plain-text message sent through Gmail.
type Email struct {
	To      string
	Subject string
	Body    string
}

// HTTPRequest describes an arbitrary outbound call.
type HTTPRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	// Body is JSON-encoded unless it is already a string.
	Body any
}

// HTTPResponse is the decoded result of an HTTPRequest.
type HTTPResponse struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Data       any               `json:"data"`
	Headers    map[string]string `json:"headers"`
}

// Map renders the response as a context value.
func (r *HTTPResponse) Map() map[string]any {
	headers := make(map[string]any, len(r.Headers))
	for k, v := range r.Headers {
		headers[k] = v
	}
	return map[string]any{
		"status":     r.Status,
		"statusText": r.StatusText,
		"data":       r.Data,
		"headers":    headers,
	}
}

// Sentiment is the top-scoring label of a classification.
type Sentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Adapter performs the outbound side effects of action steps.
// Implementations must be safe for concurrent use.
type Adapter interface {
	SendEmail(ctx context.Context, cred Credential, msg Email) (map[string]any, error)
	PostChatMessage(ctx context.Context, cred Credential, channel, text string) (map[string]any, error)
	AppendRow(ctx context.Context, cred Credential, spreadsheetID, rng string, values []any) (map[string]any, error)
	HTTPRequest(ctx context.Context, req HTTPRequest) (*HTTPResponse, error)
	ClassifySentiment(ctx context.Context, text string) (*Sentiment, error)
}
