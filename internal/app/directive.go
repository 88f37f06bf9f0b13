package app

import (
	"encoding/json"
	"strings"
)

// Directive is the structured search payload the model embeds in free text
// once it has gathered enough product detail.
type Directive struct {
	ProductDescription string
}

type directivePayload struct {
	Product string `json:"product"`
}

// ExtractDirective scans model output for a JSON object between the first
// '{' and the last '}' carrying a "product" field. Extraction is optimistic
// and never fatal: malformed JSON, missing braces, or an empty product field
// all mean "no directive", which is a normal outcome, not an error.
func ExtractDirective(text string) (Directive, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Directive{}, false
	}
	var payload directivePayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return Directive{}, false
	}
	description := strings.TrimSpace(payload.Product)
	if description == "" {
		return Directive{}, false
	}
	return Directive{ProductDescription: description}, true
}

// replyAfterDirective returns the model text that follows the directive's
// closing brace, the part meant for the user.
func replyAfterDirective(text string) string {
	end := strings.LastIndex(text, "}")
	if end < 0 {
		return text
	}
	return strings.TrimSpace(text[end+1:])
}
