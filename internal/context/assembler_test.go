package ctxengine_test

import (
	"slices"
	"testing"

	ctxengine "github.com/flemzord/ragchat/internal/context"
	"github.com/flemzord/ragchat/internal/memory"
	"github.com/flemzord/ragchat/internal/provider"
)

func TestChatAssembler_Shape(t *testing.T) {
	t.Parallel()

	history := []memory.Turn{memory.UserTurn("hi"), memory.AssistantTurn("hello")}
	msgs := ctxengine.ChatAssembler{}.Assemble(ctxengine.Assembly{
		Instruction: "be nice",
		History:     history,
		UserText:    "What is the capital of France?",
		Context:     "ignored",
	})

	want := []provider.LLMMessage{
		{Role: provider.MessageRoleSystem, Content: "be nice"},
		{Role: provider.MessageRoleUser, Content: "hi"},
		{Role: provider.MessageRoleAssistant, Content: "hello"},
		{Role: provider.MessageRoleUser, Content: "What is the capital of France?"},
	}
	if !slices.Equal(msgs, want) {
		t.Errorf("Assemble = %+v, want %+v", msgs, want)
	}
}

func TestContextAssembler_Interpolates(t *testing.T) {
	t.Parallel()

	msgs := ctxengine.ContextAssembler{}.Assemble(ctxengine.Assembly{
		Instruction: "Answer from:\n{context}\nEnd.",
		UserText:    "q",
		Context:     "Paris is...\n\nFrance is...",
	})

	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if want := "Answer from:\nParis is...\n\nFrance is...\nEnd."; msgs[0].Content != want {
		t.Errorf("system = %q, want %q", msgs[0].Content, want)
	}
	if msgs[1] != (provider.LLMMessage{Role: provider.MessageRoleUser, Content: "q"}) {
		t.Errorf("user = %+v", msgs[1])
	}
}

func TestInterpolate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		context  string
		want     string
	}{
		{name: "placeholder", template: "ctx: {context}", context: "abc", want: "ctx: abc"},
		{name: "once_only", template: "{context} and {context}", context: "x", want: "x and {context}"},
		{name: "placeholder_in_context", template: "[{context}]", context: "{context}", want: "[{context}]"},
		{name: "no_placeholder", template: "base", context: "abc", want: "base\n\nabc"},
		{name: "no_placeholder_empty_context", template: "base", context: "", want: "base"},
		{name: "empty_template", template: "", context: "abc", want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ctxengine.Interpolate(tt.template, tt.context); got != tt.want {
				t.Errorf("Interpolate(%q, %q) = %q, want %q", tt.template, tt.context, got, tt.want)
			}
		})
	}
}

func TestAssemblers_DoNotMutateHistory(t *testing.T) {
	t.Parallel()

	history := makeTestTurns(4)
	snapshot := slices.Clone(history)

	for _, a := range []ctxengine.Assembler{ctxengine.ChatAssembler{}, ctxengine.ContextAssembler{}} {
		msgs := a.Assemble(ctxengine.Assembly{Instruction: "{context}", History: history, UserText: "u", Context: "c"})
		msgs[1].Content = "changed"
	}

	if !slices.Equal(history, snapshot) {
		t.Errorf("history mutated: %+v", history)
	}
}

func TestAssemblers_AcceptEmptyUserText(t *testing.T) {
	t.Parallel()

	msgs := ctxengine.ChatAssembler{}.Assemble(ctxengine.Assembly{Instruction: "s"})
	if len(msgs) != 2 || msgs[1].Content != "" {
		t.Errorf("Assemble = %+v, want system plus empty user message", msgs)
	}
}
