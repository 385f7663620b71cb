package message

import (
	"strings"
	"testing"

	"github.com/voocel/miniagents/promising"
)

func TestRenderPrefersContentTemplate(t *testing.T) {
	m, err := New("Message", false, F("content_template", "hello {name}"), F("name", "world"), F("content", "unused"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := m.Render(); got != "hello world" {
		t.Fatalf("Render() = %q, want %q", got, "hello world")
	}
}

func TestRenderFallsBackToContent(t *testing.T) {
	m := TextMessage("plain text")
	if got := m.Render(); got != "plain text" {
		t.Fatalf("Render() = %q, want %q", got, "plain text")
	}
}

func TestRenderFallsBackToFencedJSON(t *testing.T) {
	m, err := New("Message", false, F("x", int64(1)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := m.Render()
	if !strings.HasPrefix(got, "```json") {
		t.Fatalf("Render() = %q, want fenced JSON", got)
	}
}

func TestTokenAppenderRejectsReservedFields(t *testing.T) {
	ta := NewTokenAppender(false)
	if err := ta.SetAux("content", "x"); err == nil {
		t.Fatalf("expected SetAux to reject the reserved field %q", "content")
	}
	if err := ta.SetAux("role", "assistant"); err != nil {
		t.Fatalf("SetAux(role): %v", err)
	}
}

func TestMessagePromiseAssemblesTokensAndAux(t *testing.T) {
	ctx := promising.NewContext(nil)
	ta := NewTokenAppender(false)
	ta.Open()

	mp := Promise(ctx, false, "Message", false, nil, ta)

	go func() {
		ta.Append("hello ")
		ta.Append("world")
		ta.SetAux("role", "assistant")
		ta.Close()
	}()

	msg, err := mp.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	content, _ := msg.Content()
	if content != "hello world" {
		t.Fatalf("content = %q, want %q", content, "hello world")
	}
	role, _ := msg.Record().Get("role")
	if role != "assistant" {
		t.Fatalf("role = %v, want assistant", role)
	}
}

func TestSequencePromiseFlattensStringsAndNestedInputs(t *testing.T) {
	ctx := promising.NewContext(nil)
	seq := NewSequencePromise(ctx, false)
	seq.Append("hi")
	seq.Append([]Input{"nested a", "nested b"})
	seq.Close()
	seq.CloseUrgent()

	msgs, err := seq.ResolveAll()
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 flattened messages, got %d", len(msgs))
	}
	c0, _ := msgs[0].Content()
	c1, _ := msgs[1].Content()
	c2, _ := msgs[2].Content()
	if c0 != "hi" || c1 != "nested a" || c2 != "nested b" {
		t.Fatalf("unexpected flattened contents: %q %q %q", c0, c1, c2)
	}
}

func TestAsSingleTextPromiseJoinsRenderedContent(t *testing.T) {
	ctx := promising.NewContext(nil)
	seq := NewSequencePromise(ctx, false)
	seq.Append("a")
	seq.Append("b")
	seq.Close()
	seq.CloseUrgent()

	single := seq.AsSingleTextPromise("\n", false, false)
	msg, err := single.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	content, _ := msg.Content()
	if content != "a\nb" {
		t.Fatalf("content = %q, want %q", content, "a\nb")
	}
}

func TestSafeMessageRecoversPartialContentOnError(t *testing.T) {
	ctx := promising.NewContext(nil)
	ta := NewTokenAppender(false)
	ta.Open()
	mp := Promise(ctx, false, "Message", false, nil, ta)

	go func() {
		ta.Append("partial ")
		ta.CloseWithError(errTokenFailure)
	}()

	safe := SafeMessage(mp)
	msg, err := safe.Resolve()
	if err != nil {
		t.Fatalf("expected Safe to recover the error, got err=%v", err)
	}
	content, _ := msg.Content()
	if content != "partial " {
		t.Fatalf("content = %q, want %q", content, "partial ")
	}
	isErr, _ := msg.Record().Get("is_error")
	if isErr != true {
		t.Fatalf("expected is_error=true on recovered message")
	}
}

func TestSequencePromiseFlattensNestedSubAgentSequence(t *testing.T) {
	ctx := promising.NewContext(nil)

	sub := NewSequencePromise(ctx, false)
	sub.Append("sub a")
	sub.Append("sub b")
	sub.Close()
	sub.CloseUrgent()

	outer := NewSequencePromise(ctx, false)
	outer.Append("outer a")
	outer.Append(sub)
	outer.Append("outer b")
	outer.Close()
	outer.CloseUrgent()

	msgs, err := outer.ResolveAll()
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("expected 4 flattened messages, got %d", len(msgs))
	}
	want := []string{"outer a", "sub a", "sub b", "outer b"}
	for i, m := range msgs {
		c, _ := m.Content()
		if c != want[i] {
			t.Fatalf("msgs[%d] = %q, want %q", i, c, want[i])
		}
	}
}

func TestSequencePromiseFlattensDictInput(t *testing.T) {
	ctx := promising.NewContext(nil)
	seq := NewSequencePromise(ctx, false)
	seq.Append(map[string]any{"role": "assistant", "content": "hi there"})
	seq.Close()
	seq.CloseUrgent()

	msgs, err := seq.ResolveAll()
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 flattened message, got %d", len(msgs))
	}
	content, _ := msgs[0].Content()
	if content != "hi there" {
		t.Fatalf("content = %q, want %q", content, "hi there")
	}
	role, _ := msgs[0].Record().Get("role")
	if role != "assistant" {
		t.Fatalf("role = %v, want assistant", role)
	}
}

var errTokenFailure = &tokenErr{"token stream failed"}

type tokenErr struct{ msg string }

func (e *tokenErr) Error() string { return e.msg }
