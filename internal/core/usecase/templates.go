package usecase

import (
	"strings"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
)

const (
	placeholderQuery      = "query"
	placeholderContext    = "context"
	placeholderValues     = "values"
	placeholderFAQContext = "faq_context"
)

// renderTemplate substitutes {name} placeholders verbatim. Doubled braces
// render as literal braces; unknown placeholders are left as written.
func renderTemplate(tmpl string, values map[string]string) string {
	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		ch := tmpl[i]
		switch {
		case ch == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			b.WriteByte('{')
			i++
		case ch == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			b.WriteByte('}')
			i++
		case ch == '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				b.WriteByte(ch)
				continue
			}
			name := tmpl[i+1 : i+1+end]
			value, ok := values[name]
			if !ok {
				b.WriteByte(ch)
				continue
			}
			b.WriteString(value)
			i += end + 1
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// hasPlaceholder reports whether rendering tmpl would substitute {name}.
func hasPlaceholder(tmpl, name string) bool {
	return renderTemplate(tmpl, map[string]string{name: "\x00"}) != renderTemplate(tmpl, nil)
}

// withConversation prepends the trimmed transcript as a system message.
func withConversation(conversation string, messages ...domain.Message) []domain.Message {
	if strings.TrimSpace(conversation) == "" {
		return messages
	}
	out := make([]domain.Message, 0, len(messages)+1)
	out = append(out, domain.Message{Role: domain.RoleSystem, Content: "Conversation so far:\n" + conversation})
	return append(out, messages...)
}
