package processors

import (
	"context"
	"strings"
	"unicode"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/expressions"
)

const maxKeywords = 10

var stopWords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "have": {}, "will": {},
	"from": {}, "they": {}, "been": {}, "were": {}, "said": {},
}

// sourceText picks context[textField], then context.text, then "".
func sourceText(in Input) string {
	if field := stringParam(in.Config(), "textField", ""); field != "" {
		if v, ok := in.Data[field]; ok && v != nil {
			if s := expressions.Stringify(v); s != "" {
				return s
			}
		}
	}
	if v, ok := in.Data["text"]; ok && v != nil {
		return expressions.Stringify(v)
	}
	return ""
}

func (b *builtins) aiSentiment(ctx context.Context, in Input) (map[string]any, error) {
	text := sourceText(in)
	s, err := b.adapter.ClassifySentiment(ctx, text)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"sentiment": map[string]any{
			"label":         strings.ToLower(s.Label),
			"confidence":    s.Score,
			"original_text": text,
		},
	}, nil
}

func aiKeywords(_ context.Context, in Input) (map[string]any, error) {
	text := sourceText(in)
	keywords := ExtractKeywords(text)
	extracted := make([]any, len(keywords))
	for i, k := range keywords {
		extracted[i] = k
	}
	return map[string]any{
		"keywords": map[string]any{
			"extracted":     extracted,
			"original_text": text,
		},
	}, nil
}

// ExtractKeywords lowercases text, strips everything but ASCII word runes and
// whitespace, and returns up to ten distinct words longer than three
// characters that are not stop words, in order of first appearance.
func ExtractKeywords(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case unicode.IsSpace(r):
			return r
		default:
			return -1
		}
	}, strings.ToLower(text))

	seen := make(map[string]struct{})
	out := make([]string, 0, maxKeywords)
	for _, w := range strings.Fields(cleaned) {
		if len(w) <= 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}
