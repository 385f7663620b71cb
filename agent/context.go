package agent

import "github.com/voocel/miniagents/message"

// InteractionContext is the handle an AgentFunc receives: its input message
// sequence, the call-time kwargs merged from registration/Fork/Trigger, and
// a reply interface for streaming messages back to the caller.
type InteractionContext struct {
	ThisAgent       *Agent
	MessagePromises *message.MessageSequencePromise
	KWArgs          map[string]any

	reply         *message.MessageSequencePromise
	finishedEarly bool
}

// Reply appends input to the normal, ordered reply stream.
func (ictx *InteractionContext) Reply(input message.Input) error {
	return ictx.reply.Append(input)
}

// ReplyOutOfOrder appends input ahead of whatever is still buffered on the
// normal reply stream.
func (ictx *InteractionContext) ReplyOutOfOrder(input message.Input) error {
	return ictx.reply.AppendUrgent(input)
}

// FinishEarly closes the reply stream immediately, before the agent
// function returns. Any reply appended after FinishEarly is a usage error
// on the caller's part; the agent function should return promptly once it
// calls this.
func (ictx *InteractionContext) FinishEarly() {
	ictx.finishedEarly = true
	ictx.reply.Close()
	ictx.reply.CloseUrgent()
}
