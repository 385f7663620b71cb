package message

import (
	"strings"

	"github.com/voocel/miniagents/frozen"
	"github.com/voocel/miniagents/promising"
)

// MessagePromise is a replayable promise over a single message assembled
// token by token: KnownBeforehand exposes whatever metadata is available
// before the first token arrives, and Resolve drains the token stream into
// the final Message, merging in whatever the TokenAppender's auxiliary
// field collector accumulated along the way.
type MessagePromise struct {
	known  *frozen.Record
	class  string
	strict bool
	stream *promising.StreamedPromise[string, *Message]
	aux    func() map[string]any
}

// Promise builds a MessagePromise that streams tokens from appender and
// merges known's fields (preliminary metadata) with the appender's
// auxiliary fields into the final message, tagged with class and strict.
func Promise(ctx *promising.Context, startSoon bool, class string, strict bool, known *frozen.Record, appender *TokenAppender) *MessagePromise {
	mp := &MessagePromise{known: known, class: class, strict: strict, aux: appender.auxSnapshot}
	mp.stream = promising.NewStreamedPromise[string, *Message](ctx, startSoon, appender.producer(), mp.packager)
	return mp
}

// KnownBeforehand returns the preliminary metadata available before any
// token has been produced. It is empty (not nil) if the promise was built
// with no known fields.
func (mp *MessagePromise) KnownBeforehand() *frozen.Record {
	if mp.known != nil {
		return mp.known
	}
	empty, _ := frozen.New(mp.class, map[string]any{})
	return empty
}

// Tokens returns a fresh replay cursor over the message's tokens.
func (mp *MessagePromise) Tokens() *promising.StreamReplayIterator[string, *Message] {
	return mp.stream.NewReplayIterator()
}

// Resolve drains the token stream (if not already) and returns the final,
// fully assembled Message.
func (mp *MessagePromise) Resolve() (*Message, error) {
	return mp.stream.ResolveWhole()
}

func (mp *MessagePromise) packager(tokens []string) (*Message, error) {
	fields := make(map[string]any)
	if mp.known != nil {
		for _, name := range mp.known.Fields() {
			v, _ := mp.known.Get(name)
			fields[name] = v
		}
	}
	for k, v := range mp.aux() {
		fields[k] = v
	}
	var content strings.Builder
	for _, t := range tokens {
		content.WriteString(t)
	}
	fields["content"] = content.String()

	fs := make([]Field, 0, len(fields))
	for k, v := range fields {
		fs = append(fs, F(k, v))
	}
	return New(mp.class, mp.strict, fs...)
}
