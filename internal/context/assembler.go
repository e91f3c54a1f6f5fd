package ctxengine

import (
	"strings"

	"github.com/flemzord/ragchat/internal/memory"
	"github.com/flemzord/ragchat/internal/provider"
)

// Assembly holds the inputs of one prompt.
type Assembly struct {
	// Instruction is the system message, or the RAG template containing
	// ContextPlaceholder.
	Instruction string

	// History is the already trimmed history, oldest first.
	History []memory.Turn

	// UserText is the current user turn.
	UserText string

	// Context is the retrieved text. Only the context assembler reads it.
	Context string
}

// Assembler turns an Assembly into the ordered messages sent to a backend.
type Assembler interface {
	Assemble(a Assembly) []provider.LLMMessage
}

// Compile-time interface guards.
var (
	_ Assembler = ChatAssembler{}
	_ Assembler = ContextAssembler{}
)

// ChatAssembler builds [system, history..., user] for plain chat.
type ChatAssembler struct{}

// Assemble implements Assembler.
func (ChatAssembler) Assemble(a Assembly) []provider.LLMMessage {
	return build(a.Instruction, a.History, a.UserText)
}

// ContextAssembler builds the same shape as ChatAssembler but fills the
// instruction's {context} placeholder with the retrieved text. A template
// without the placeholder gets the context appended after a blank line.
type ContextAssembler struct{}

// Assemble implements Assembler.
func (ContextAssembler) Assemble(a Assembly) []provider.LLMMessage {
	return build(Interpolate(a.Instruction, a.Context), a.History, a.UserText)
}

// Interpolate substitutes the first {context} placeholder of template.
// Placeholders that appear inside the context itself are left alone.
func Interpolate(template, context string) string {
	if i := strings.Index(template, ContextPlaceholder); i >= 0 {
		return template[:i] + context + template[i+len(ContextPlaceholder):]
	}
	if context == "" {
		return template
	}
	if template == "" {
		return context
	}
	return template + "\n\n" + context
}

func build(system string, history []memory.Turn, user string) []provider.LLMMessage {
	msgs := make([]provider.LLMMessage, 0, len(history)+2)
	msgs = append(msgs, provider.LLMMessage{Role: provider.MessageRoleSystem, Content: system})
	for _, t := range history {
		msgs = append(msgs, provider.LLMMessage{Role: roleOf(t.Role), Content: t.Content})
	}
	msgs = append(msgs, provider.LLMMessage{Role: provider.MessageRoleUser, Content: user})
	return msgs
}

func roleOf(r memory.Role) provider.MessageRole {
	if r == memory.RoleAssistant {
		return provider.MessageRoleAssistant
	}
	return provider.MessageRoleUser
}
