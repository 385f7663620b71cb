package miniagents

import (
	"context"
	"testing"

	"github.com/voocel/miniagents/agent"
	"github.com/voocel/miniagents/promising"
)

func greeter(ictx *agent.InteractionContext) error {
	return ictx.Reply("hello from a run")
}

func TestRunWaitsForBackgroundAgentWork(t *testing.T) {
	var replies []string

	err := Run(context.Background(), func(ctx context.Context, pctx *promising.Context) error {
		a := agent.Register(greeter)
		reply := a.Trigger(pctx, "hi")
		msgs, err := reply.ResolveAll()
		if err != nil {
			return err
		}
		for _, m := range msgs {
			replies = append(replies, m.Render())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(replies) != 1 || replies[0] != "hello from a run" {
		t.Fatalf("replies = %v", replies)
	}
}
