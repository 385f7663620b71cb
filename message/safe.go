package message

import (
	"fmt"
	"strings"

	"github.com/voocel/miniagents/promising"
)

// Safe wraps seq so that a failing inner message promise yields a
// best-effort message (whatever content streamed before the failure, plus
// an is_error=true tag) instead of propagating the error and aborting
// iteration — the error-to-message mode applied at message-sequence
// granularity. It ports the original's SafeMessageSequencePromise /
// _SafeMessagePromiseIteratorProxy using plain wrapper structs, since Go has
// no equivalent of wrapt.ObjectProxy's transparent attribute forwarding.
//
// Safe only recovers a message promise whose own token stream fails; if the
// underlying sequence's own flattening production fails (e.g. because its
// appender was closed with an error and the owning Context's
// AppendersCaptureErrorsByDefault is false), the failure is structural and
// still propagates from Messages/ResolveAll. If
// promising.Context.AppendersCaptureErrorsByDefault is set before building
// seq, such an error instead ends seq as a clean end of stream; it then does
// not propagate and is not turned into a message either.
func Safe(seq *MessageSequencePromise) *MessageSequencePromise {
	safeSeq := NewSequencePromise(seq.ctx, false)
	it := seq.Messages()
	safeSeq.ctx.StartSoon(func() error {
		for {
			mp, err := it.Next()
			if err != nil {
				if err == promising.ErrEndOfStream {
					safeSeq.Close()
				} else {
					safeSeq.CloseWithError(err)
				}
				safeSeq.CloseUrgent()
				return nil
			}
			safeSeq.Append(SafeMessage(mp))
		}
	})
	return safeSeq
}

// SafeMessage wraps a single MessagePromise so that Resolve never returns an
// error: a mid-stream token failure becomes a message carrying whatever
// content streamed before the failure plus an is_error=true tag.
func SafeMessage(mp *MessagePromise) *MessagePromise {
	result := &MessagePromise{known: mp.known, class: mp.class, strict: mp.strict}
	result.stream = promising.NewStreamedPromise[string, *Message](nil, false,
		func() (string, error) { return "", promising.ErrEndOfStream },
		func([]string) (*Message, error) { return safeResolve(mp) },
	)
	return result
}

// safeResolve replays mp's tokens, recovering from a mid-stream failure by
// building a best-effort message out of whatever content streamed so far.
func safeResolve(mp *MessagePromise) (*Message, error) {
	it := mp.Tokens()
	var tokens []string
	for {
		tok, err := it.Next()
		if err != nil {
			if err == promising.ErrEndOfStream {
				break
			}
			return TextMessage(strings.Join(tokens, ""),
				F("is_error", true),
				F("error_class", fmt.Sprintf("%T", err)),
				F("error_text", err.Error()),
			), nil
		}
		tokens = append(tokens, tok)
	}
	return mp.Resolve()
}
