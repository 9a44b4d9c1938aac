package processors

import (
	"log/slog"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/expressions"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/integrations"
)

// Deps holds the collaborators the built-in processors need.
type Deps struct {
	Adapter     integrations.Adapter
	Credentials CredentialSource
	Logger      *slog.Logger
}

type builtins struct {
	adapter integrations.Adapter
	creds   CredentialSource
	logger  *slog.Logger
	jq      expressions.Engine
	expr    expressions.Engine
}

// editorAliases maps the block names emitted by the workflow editor to the
// canonical blockType.
var editorAliases = map[string]string{
	"send-email":        "gmail-send",
	"send-chat-message": "slack-send",
	"append-row":        "sheets-add-row",
	"http-post":         "webhook-post",
	"sentiment":         "ai-sentiment",
	"keywords":          "ai-keywords",
}

// RegisterBuiltins registers every built-in blockType and its editor alias.
func RegisterBuiltins(r *Registry, deps Deps) error {
	b := &builtins{
		adapter: deps.Adapter,
		creds:   deps.Credentials,
		logger:  deps.Logger,
		jq:      expressions.NewGoJQEngine(),
		expr:    expressions.NewExprEngine(),
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}

	procs := []Processor{
		// Triggers
		New("webhook-trigger", "Start a workflow from an inbound webhook payload.", passThrough),
		New("schedule-trigger", "Start a workflow on a cron schedule.", passThrough),
		New("typeform-trigger", "Start a workflow from a Typeform submission.", typeformTrigger),
		New("gmail-trigger", "Start a workflow from incoming Gmail messages.", b.gmailTrigger),

		// Actions
		New("gmail-send", "Send an email through Gmail.", b.gmailSend),
		New("slack-send", "Post a message to a Slack channel.", b.slackSend),
		New("sheets-add-row", "Append a row to a Google Sheets range.", b.sheetsAddRow),
		New("webhook-post", "Call an HTTP endpoint with a JSON body.", b.webhookPost),
		New("ai-sentiment", "Classify the sentiment of a text field.", b.aiSentiment),
		New("ai-keywords", "Extract keywords from a text field.", aiKeywords),

		// Conditions and utilities
		New("if-condition", "Compare a context field and record condition_result.", ifCondition),
		New("delay", "Wait for a number of milliseconds.", delay),
		New("formatter", "Render a template, jq query or expr expression.", b.formatter),
		New("logger", "Write a message to the execution log.", b.logStep),
	}
	for _, p := range procs {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	for alias, target := range editorAliases {
		if err := r.Alias(alias, target); err != nil {
			return err
		}
	}
	return nil
}

// NewBuiltinRegistry returns a Registry with all built-in processors.
func NewBuiltinRegistry(deps Deps) (*Registry, error) {
	r := NewRegistry()
	if err := RegisterBuiltins(r, deps); err != nil {
		return nil, err
	}
	return r, nil
}
