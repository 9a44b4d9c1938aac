package processors

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/integrations"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/logging"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

type harness struct {
	reg     *Registry
	adapter *fakeAdapter
	creds   *fakeCreds
	logs    *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		adapter: &fakeAdapter{},
		creds:   &fakeCreds{have: map[schema.IntegrationType]bool{}},
		logs:    &bytes.Buffer{},
	}
	reg, err := NewBuiltinRegistry(Deps{
		Adapter:     h.adapter,
		Credentials: h.creds,
		Logger:      logging.New(h.logs, "debug", "json"),
	})
	require.NoError(t, err)
	h.reg = reg
	return h
}

func (h *harness) run(t *testing.T, blockType string, cfg, data map[string]any) (map[string]any, error) {
	t.Helper()
	p, err := h.reg.Get(blockType)
	require.NoError(t, err)
	return p.Process(context.Background(), Input{
		Step:        schema.StepDefinition{ID: "s1", BlockType: blockType, Config: cfg},
		Data:        data,
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		UserID:      "user-1",
	})
}

func TestWebhookTrigger_PassesPayload(t *testing.T) {
	h := newHarness(t)
	data := map[string]any{"status": "ok"}
	out, err := h.run(t, "webhook-trigger", nil, data)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	out["status"] = "changed"
	assert.Equal(t, "ok", data["status"], "delta is a copy")
}

func TestTypeformTrigger(t *testing.T) {
	out, err := newHarness(t).run(t, "typeform-trigger", nil, map[string]any{"a": 1.0})
	require.NoError(t, err)
	assert.Equal(t, "typeform", out["trigger"])
	assert.Equal(t, map[string]any{"a": 1.0}, out["submission"])
}

func TestGmailTrigger(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "gmail-trigger", nil, map[string]any{})
	assert.Equal(t, schema.ErrCodeIntegrationMissing, schema.ErrorCode(err))

	h.creds.have[schema.IntegrationEmail] = true
	out, err := h.run(t, "gmail-trigger", nil, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "gmail", out["trigger"])
	assert.Equal(t, []any{}, out["emails"])
}

func TestGmailSend(t *testing.T) {
	h := newHarness(t)
	cfg := map[string]any{"to": "{{email}}", "subject": "Hi {{name}}", "body": "Order {{order.id}}"}
	data := map[string]any{"email": "a@b.c", "name": "Ann", "order": map[string]any{"id": 7.0}}

	_, err := h.run(t, "gmail-send", cfg, data)
	assert.Equal(t, "EMAIL integration not found", schema.Message(err))

	h.creds.have[schema.IntegrationEmail] = true
	out, err := h.run(t, "send-email", cfg, data)
	require.NoError(t, err)
	assert.Equal(t, "gmail_sent", out["action"])
	assert.Equal(t, "a@b.c", out["to"])
	require.Len(t, h.adapter.emails, 1)
	assert.Equal(t, integrations.Email{To: "a@b.c", Subject: "Hi Ann", Body: "Order 7"}, h.adapter.emails[0])
}

func TestSlackSend(t *testing.T) {
	h := newHarness(t)
	h.creds.have[schema.IntegrationChat] = true
	out, err := h.run(t, "slack-send", map[string]any{"channel": "#ops", "message": "{{missing}} hi"}, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "slack_sent", out["action"])
	assert.Equal(t, "{{missing}} hi", out["message"])
	assert.Equal(t, []string{"#ops:{{missing}} hi"}, h.adapter.chats)
}

func TestSheetsAddRow(t *testing.T) {
	h := newHarness(t)
	h.creds.have[schema.IntegrationSheets] = true

	_, err := h.run(t, "sheets-add-row", map[string]any{"range": "A1"}, nil)
	assert.Equal(t, schema.ErrCodeValidation, schema.ErrorCode(err))

	out, err := h.run(t, "append-row",
		map[string]any{"resourceId": "sheet", "range": "A1", "values": []any{"{{name}}", 3.0}},
		map[string]any{"name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, []any{"Ann", 3.0}, out["values"])
	assert.Equal(t, "sheets_row_added", out["action"])
}

func TestWebhookPost(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "http-post", map[string]any{
		"url":     "https://example.com/{{path}}",
		"headers": map[string]any{"X-Trace": "{{id}}"},
		"body":    map[string]any{"user": "{{name}}", "n": 2.0},
	}, map[string]any{"path": "hook", "id": "abc", "name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "webhook_posted", out["action"])
	assert.Equal(t, "https://example.com/hook", out["url"])
	assert.Equal(t, map[string]any{"received": true}, out["result"])

	require.Len(t, h.adapter.requests, 1)
	req := h.adapter.requests[0]
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "application/json", req.Headers["Content-Type"])
	assert.Equal(t, "abc", req.Headers["X-Trace"])
	assert.Equal(t, map[string]any{"user": "Ann", "n": 2.0}, req.Body)
}

func TestWebhookPost_StringBodyAndError(t *testing.T) {
	h := newHarness(t)
	h.adapter.httpErr = schema.NewError(schema.ErrCodeIntegration, "HTTP 500: Internal Server Error")
	_, err := h.run(t, "webhook-post", map[string]any{"url": "https://x.test", "method": "put", "body": `{"a":"{{a}}"}`},
		map[string]any{"a": "b"})
	require.Error(t, err)
	assert.Equal(t, `{"a":"b"}`, h.adapter.requests[0].Body)
	assert.Equal(t, "PUT", h.adapter.requests[0].Method)

	_, err = h.run(t, "webhook-post", map[string]any{}, nil)
	assert.Equal(t, schema.ErrCodeValidation, schema.ErrorCode(err))
}

func TestAISentiment(t *testing.T) {
	h := newHarness(t)
	h.adapter.sentiment = &integrations.Sentiment{Label: "POSITIVE", Score: 0.9}
	out, err := h.run(t, "sentiment", map[string]any{"textField": "review"}, map[string]any{"review": "love it"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"label": "positive", "confidence": 0.9, "original_text": "love it"}, out["sentiment"])

	out, err = h.run(t, "ai-sentiment", map[string]any{"textField": "review"}, map[string]any{"text": "fallback"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", out["sentiment"].(map[string]any)["original_text"])
}

func TestAIKeywords(t *testing.T) {
	out, err := newHarness(t).run(t, "keywords", nil, map[string]any{"text": "This is a test test message about testing"})
	require.NoError(t, err)
	kw := out["keywords"].(map[string]any)
	assert.Equal(t, []any{"test", "message", "about", "testing"}, kw["extracted"])
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("This is a test test message about testing")
	assert.Equal(t, []string{"test", "message", "about", "testing"}, got)
	assert.NotContains(t, got, "this")

	assert.Empty(t, ExtractKeywords(""))
	assert.Equal(t, []string{"hello", "world"}, ExtractKeywords("Hello, WORLD! hello"))

	long := "alpha bravo charlie delta echoo foxtrot golf1 hotel india juliet kilo1 lima1"
	assert.Len(t, ExtractKeywords(long), 10)
	assert.Equal(t, ExtractKeywords(long), ExtractKeywords(long))
}

func TestDelay(t *testing.T) {
	assert.Equal(t, time.Second, delayDuration(map[string]any{}))
	assert.Equal(t, 5*time.Millisecond, delayDuration(map[string]any{"durationMs": 5.0}))
	assert.Equal(t, 7*time.Millisecond, delayDuration(map[string]any{"duration": 7}))
	assert.Equal(t, time.Duration(0), delayDuration(map[string]any{"durationMs": -250.0}))
	assert.Equal(t, time.Duration(0), delayDuration(map[string]any{"duration": -1}))

	h := newHarness(t)
	out, err := h.run(t, "delay", map[string]any{"durationMs": 1.0}, nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, _ := h.reg.Get("delay")
	_, err = p.Process(ctx, Input{Step: schema.StepDefinition{Config: map[string]any{"durationMs": 60000.0}}})
	assert.Equal(t, schema.ErrCodeExecution, schema.ErrorCode(err))
}

func TestFormatter(t *testing.T) {
	h := newHarness(t)
	data := map[string]any{"name": "Ann", "items": []any{1.0, 2.0, 3.0}}

	out, err := h.run(t, "formatter", map[string]any{"format": "template", "template": "Hi {{name}}"}, data)
	require.NoError(t, err)
	assert.Equal(t, "Hi Ann", out["formatted"])

	out, err = h.run(t, "formatter", map[string]any{"format": "jq", "template": ".items | length"}, data)
	require.NoError(t, err)
	assert.EqualValues(t, 3, out["formatted"])

	out, err = h.run(t, "formatter", map[string]any{"format": "expr", "template": `name + "!"`}, data)
	require.NoError(t, err)
	assert.Equal(t, "Ann!", out["formatted"])

	out, err = h.run(t, "formatter", map[string]any{"format": "markdown"}, data)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = h.run(t, "formatter", map[string]any{"format": "jq", "template": ".["}, data)
	assert.Error(t, err)
}

func TestFormatter_NonFiniteIsNull(t *testing.T) {
	h := newHarness(t)
	data := map[string]any{"x": 1.0}

	out, err := h.run(t, "formatter", map[string]any{"format": "expr", "template": "x / 0"}, data)
	require.NoError(t, err)
	assert.Contains(t, out, "formatted")
	assert.Nil(t, out["formatted"])

	out, err = h.run(t, "formatter", map[string]any{"format": "jq", "template": "[infinite, 1]"}, data)
	require.NoError(t, err)
	list, ok := out["formatted"].([]any)
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Nil(t, list[0])
	assert.EqualValues(t, 1, list[1])
}

func TestLogger(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "logger", map[string]any{"message": "Status: {{status}}"}, map[string]any{"status": "ok"})
	require.NoError(t, err)
	assert.Equal(t, "Status: ok", out["logged"])
	assert.Contains(t, h.logs.String(), `"message":"Status: ok"`)
	assert.Contains(t, h.logs.String(), `"execution_id":"exec-1"`)
	assert.Contains(t, h.logs.String(), `"step_id":"s1"`)
}

func TestLoggerDefaultsToSlogDefault(t *testing.T) {
	r, err := NewBuiltinRegistry(Deps{})
	require.NoError(t, err)
	p, err := r.Get("logger")
	require.NoError(t, err)
	out, err := p.Process(context.Background(), Input{Step: schema.StepDefinition{ID: "l"}})
	require.NoError(t, err)
	assert.Equal(t, "", out["logged"])
}
