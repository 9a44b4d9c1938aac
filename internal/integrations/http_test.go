package integrations

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

func newRecordingServer(t *testing.T, status int, response string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.Method = r.Method
		rec.Path = r.URL.EscapedPath()
		rec.Query = r.URL.RawQuery
		rec.Auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestEncodeRawMessage(t *testing.T) {
	raw := EncodeRawMessage(Email{To: "a@b.c", Subject: "Hi", Body: "hello?>"})
	assert.NotContains(t, raw, "+")
	assert.NotContains(t, raw, "/")

	decoded, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)
	assert.Equal(t, "To: a@b.c\nSubject: Hi\n\nhello?>", string(decoded))
}

func TestSendEmail(t *testing.T) {
	srv, rec := newRecordingServer(t, http.StatusOK, `{"id":"m1","threadId":"t1"}`)
	a := NewHTTPAdapter(HTTPConfig{GmailBaseURL: srv.URL})

	out, err := a.SendEmail(context.Background(), Credential{AccessToken: "tok"}, Email{To: "x@y.z", Subject: "s", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, "m1", out["id"])
	assert.Equal(t, "/gmail/v1/users/me/messages/send", rec.Path)
	assert.Equal(t, "Bearer tok", rec.Auth)
	assert.Equal(t, EncodeRawMessage(Email{To: "x@y.z", Subject: "s", Body: "b"}), rec.Body["raw"])
}

func TestSendEmail_HTTPError(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusUnauthorized, `{"error":"invalid_token"}`)
	a := NewHTTPAdapter(HTTPConfig{GmailBaseURL: srv.URL})

	_, err := a.SendEmail(context.Background(), Credential{AccessToken: "bad"}, Email{To: "x"})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeIntegration, schema.ErrorCode(err))
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestPostChatMessage(t *testing.T) {
	srv, rec := newRecordingServer(t, http.StatusOK, `{"ok":true,"ts":"1.2"}`)
	a := NewHTTPAdapter(HTTPConfig{SlackBaseURL: srv.URL})

	out, err := a.PostChatMessage(context.Background(), Credential{AccessToken: "xoxb"}, "#general", "hi")
	require.NoError(t, err)
	assert.Equal(t, "1.2", out["ts"])
	assert.Equal(t, "/chat.postMessage", rec.Path)
	assert.Equal(t, "#general", rec.Body["channel"])
	assert.Equal(t, "hi", rec.Body["text"])
}

func TestPostChatMessage_NotOK(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusOK, `{"ok":false,"error":"channel_not_found"}`)
	a := NewHTTPAdapter(HTTPConfig{SlackBaseURL: srv.URL})

	_, err := a.PostChatMessage(context.Background(), Credential{AccessToken: "xoxb"}, "#nope", "hi")
	require.Error(t, err)
	assert.Equal(t, "Slack error: channel_not_found", schema.Message(err))
}

func TestAppendRow(t *testing.T) {
	srv, rec := newRecordingServer(t, http.StatusOK, `{"updates":{"updatedRows":1}}`)
	a := NewHTTPAdapter(HTTPConfig{SheetsBaseURL: srv.URL})

	_, err := a.AppendRow(context.Background(), Credential{AccessToken: "ya29"}, "sheet1", "A1:C1", []any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "/v4/spreadsheets/sheet1/values/A1:C1:append", rec.Path)
	assert.Equal(t, "valueInputOption=RAW", rec.Query)
	assert.Equal(t, []any{[]any{"a", "b"}}, rec.Body["values"])
}

func TestHTTPRequest_JSONAndText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/text" {
			_, _ = w.Write([]byte("plain"))
			return
		}
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"echo": in["name"], "method": r.Method, "ct": r.Header.Get("Content-Type")})
	}))
	defer srv.Close()
	a := NewHTTPAdapter(HTTPConfig{})

	resp, err := a.HTTPRequest(context.Background(), HTTPRequest{
		URL:     srv.URL + "/json",
		Method:  "put",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    map[string]any{"name": "bob"},
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "OK", resp.StatusText)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "bob", data["echo"])
	assert.Equal(t, "PUT", data["method"])
	assert.Equal(t, "application/json", data["ct"])

	resp, err = a.HTTPRequest(context.Background(), HTTPRequest{URL: srv.URL + "/text", Method: "GET"})
	require.NoError(t, err)
	assert.Equal(t, "plain", resp.Data)
	assert.Equal(t, 200, resp.Map()["status"])
}

func TestHTTPRequest_StringBodySentVerbatim(t *testing.T) {
	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	_, err := NewHTTPAdapter(HTTPConfig{}).HTTPRequest(context.Background(), HTTPRequest{
		URL:  srv.URL,
		Body: `{"a":"b"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"b"}`, string(got))
}

func TestHTTPRequest_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPAdapter(HTTPConfig{}).HTTPRequest(context.Background(), HTTPRequest{URL: srv.URL})
	require.Error(t, err)
	assert.Equal(t, "HTTP 502: Bad Gateway", schema.Message(err))
	assert.Equal(t, schema.ErrCodeIntegration, schema.ErrorCode(err))
}

func TestHTTPRequest_InvalidURL(t *testing.T) {
	_, err := NewHTTPAdapter(HTTPConfig{}).HTTPRequest(context.Background(), HTTPRequest{URL: "ftp://x"})
	assert.Equal(t, schema.ErrCodeValidation, schema.ErrorCode(err))
}

func TestClassifySentiment(t *testing.T) {
	srv, rec := newRecordingServer(t, http.StatusOK,
		`[[{"label":"negative","score":0.1},{"label":"positive","score":0.8},{"label":"neutral","score":0.1}]]`)
	a := NewHTTPAdapter(HTTPConfig{HuggingFaceURL: srv.URL, HuggingFaceKey: "hf"})

	s, err := a.ClassifySentiment(context.Background(), "great")
	require.NoError(t, err)
	assert.Equal(t, "positive", s.Label)
	assert.InDelta(t, 0.8, s.Score, 1e-9)
	assert.Equal(t, "Bearer hf", rec.Auth)
	assert.Equal(t, "great", rec.Body["inputs"])
}

func TestClassifySentiment_NoKey(t *testing.T) {
	_, err := NewHTTPAdapter(HTTPConfig{}).ClassifySentiment(context.Background(), "x")
	assert.Equal(t, schema.ErrCodeIntegrationMissing, schema.ErrorCode(err))
}

func TestTopSentiment(t *testing.T) {
	assert.Equal(t, "neutral", topSentiment([]any{}).Label)
	flat := []any{map[string]any{"label": "negative", "score": 0.9}}
	assert.Equal(t, "negative", topSentiment(flat).Label)
}
