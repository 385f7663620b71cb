package message

import (
	"fmt"
	"strings"

	"github.com/voocel/miniagents/flat"
	"github.com/voocel/miniagents/frozen"
	"github.com/voocel/miniagents/promising"
)

// Input is anything that can be appended to a MessageSequencePromise:
// conventionally a *MessagePromise, a *Message, a plain string (wrapped as a
// TextMessage), an error (wrapped as an is_error=true message), a
// map[string]any (wrapped into an open Message whose fields are the map's
// entries), a *MessageSequencePromise (drained and re-emitted message by
// message, so a sub-agent's reply sequence flattens transparently into its
// caller's), or a []Input for nested/batched input that gets flattened
// recursively.
type Input = any

// MessageSequencePromise is a replayable, ordered stream of message
// promises, built by recursively flattening whatever Input values are
// appended to it — mirroring the original's MessageSequence/_flattener.
type MessageSequencePromise struct {
	ctx *promising.Context
	seq *flat.Sequence[Input, *MessagePromise]
}

// NewSequencePromise builds an empty, appendable MessageSequencePromise.
func NewSequencePromise(ctx *promising.Context, startSoon bool) *MessageSequencePromise {
	return &MessageSequencePromise{
		ctx: ctx,
		seq: flat.NewSequence[Input, *MessagePromise](ctx, startSoon, flattenInput),
	}
}

// Append adds input to the normal, ordered stream.
func (s *MessageSequencePromise) Append(input Input) error { return s.seq.Append(input) }

// AppendUrgent adds input ahead of whatever is still buffered on the normal
// stream (the original's inject_as_urgent).
func (s *MessageSequencePromise) AppendUrgent(input Input) error { return s.seq.AppendUrgent(input) }

// Close ends the normal input stream.
func (s *MessageSequencePromise) Close() error { return s.seq.Close() }

// CloseUrgent ends the high-priority input stream.
func (s *MessageSequencePromise) CloseUrgent() error { return s.seq.CloseUrgent() }

// CloseWithError ends the normal input stream with a terminal error.
func (s *MessageSequencePromise) CloseWithError(err error) error { return s.seq.CloseWithError(err) }

// CloseUrgentWithError ends the high-priority input stream with a terminal
// error.
func (s *MessageSequencePromise) CloseUrgentWithError(err error) error {
	return s.seq.CloseUrgentWithError(err)
}

// Messages returns a fresh replay cursor over the flattened message promises.
func (s *MessageSequencePromise) Messages() *promising.StreamReplayIterator[*MessagePromise, []*MessagePromise] {
	return s.seq.Promise().NewReplayIterator()
}

// ResolveAll drains the sequence and resolves every message in it.
func (s *MessageSequencePromise) ResolveAll() ([]*Message, error) {
	promises, err := s.seq.Promise().ResolveWhole()
	if err != nil {
		return nil, err
	}
	out := make([]*Message, 0, len(promises))
	for _, mp := range promises {
		m, err := mp.Resolve()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// AsSingleTextPromise joins every message's rendered content with delimiter
// into a single message promise, forwarding referenceOriginals as an
// "originals" tuple field of externalized references to the source messages
// when requested.
func (s *MessageSequencePromise) AsSingleTextPromise(delimiter string, stripLeadingNewlines, referenceOriginals bool) *MessagePromise {
	fulfiller := func() (*Message, error) {
		msgs, err := s.ResolveAll()
		if err != nil {
			return nil, err
		}
		parts := make([]string, 0, len(msgs))
		for _, m := range msgs {
			r := m.Render()
			if stripLeadingNewlines {
				r = strings.TrimLeft(r, "\n")
			}
			parts = append(parts, r)
		}
		content := strings.Join(parts, delimiter)

		fields := []Field{F("content", content)}
		if referenceOriginals {
			refs := make([]any, len(msgs))
			for i, m := range msgs {
				refs[i] = frozen.Externalize(m.Record())
			}
			fields = append(fields, F("originals", refs))
		}
		return New("Message", false, fields...)
	}

	p := promising.NewPromise(s.ctx, false, fulfiller)
	return promiseFromResolved(s.ctx, p)
}

// promiseFromResolved adapts a promising.Promise[*Message] into a
// MessagePromise whose single token is the resolved message's rendered
// content and whose KnownBeforehand is empty, since the underlying value is
// computed all at once rather than streamed.
func promiseFromResolved(ctx *promising.Context, p *promising.Promise[*Message]) *MessagePromise {
	mp := &MessagePromise{class: "Message"}
	sent := false
	mp.stream = promising.NewStreamedPromise[string, *Message](ctx, false,
		func() (string, error) {
			if sent {
				return "", promising.ErrEndOfStream
			}
			m, err := p.Resolve()
			if err != nil {
				var zero string
				return zero, err
			}
			sent = true
			return m.Render(), nil
		},
		func([]string) (*Message, error) { return p.Resolve() },
	)
	return mp
}

// flattenInput is the Flattener driving MessageSequencePromise: it expands a
// single Input into zero or more *MessagePromise leaves, recursing through
// nested []Input and *MessageSequencePromise values the same way the
// original's _flattener walks nested iterables and sequences, so that
// composing agents into a dataflow graph (appending one agent's reply
// sequence as another's input) needs no manual draining.
func flattenInput(input Input, emit func(*MessagePromise) error) error {
	switch v := input.(type) {
	case nil:
		return nil
	case *MessagePromise:
		return emit(v)
	case *Message:
		return emit(prefilledMessagePromise(v))
	case string:
		return emit(prefilledMessagePromise(TextMessage(v)))
	case error:
		return emit(prefilledMessagePromise(errorMessage(v)))
	case []Input:
		for _, item := range v {
			if err := flattenInput(item, emit); err != nil {
				return err
			}
		}
		return nil
	case *MessageSequencePromise:
		it := v.Messages()
		for {
			mp, err := it.Next()
			if err != nil {
				if err == promising.ErrEndOfStream {
					return nil
				}
				return err
			}
			if err := emit(mp); err != nil {
				return err
			}
		}
	case map[string]any:
		m, err := New("Message", false, fieldsFromMap(v)...)
		if err != nil {
			return err
		}
		return emit(prefilledMessagePromise(m))
	default:
		return fmt.Errorf("message: %T is not a flattenable sequence input", input)
	}
}

// prefilledMessagePromise wraps an already-resolved Message as a
// MessagePromise with no streaming left to do.
func prefilledMessagePromise(m *Message) *MessagePromise {
	mp := &MessagePromise{known: m.rec, class: m.rec.Class(), strict: m.strict}
	mp.stream = promising.NewStreamedPromise[string, *Message](nil, false,
		func() (string, error) { return "", promising.ErrEndOfStream },
		func([]string) (*Message, error) { return m, nil },
	)
	return mp
}

// errorMessage converts err into a concrete is_error=true message, the
// direct-flattening counterpart to Safe's mid-stream error conversion.
func errorMessage(err error) *Message {
	return TextMessage(err.Error(),
		F("is_error", true),
		F("error_class", fmt.Sprintf("%T", err)),
	)
}

// fieldsFromMap converts a raw dict input into the Field list New expects,
// the "dict/open-record input is wrapped into a message" flattening rule.
func fieldsFromMap(m map[string]any) []Field {
	fields := make([]Field, 0, len(m))
	for k, v := range m {
		fields = append(fields, F(k, v))
	}
	return fields
}
