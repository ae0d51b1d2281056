package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/saswatpal/handlewarrior/internal/history"
)

type fakePrimary struct {
	reply string
	err   error
	calls [][]history.Turn
}

func (f *fakePrimary) ChatCompletion(_ context.Context, turns []history.Turn) (string, error) {
	f.calls = append(f.calls, turns)
	return f.reply, f.err
}

type fakeFallback struct {
	reply string
	err   error
	calls []string
}

func (f *fakeFallback) Complete(_ context.Context, text string) (string, error) {
	f.calls = append(f.calls, text)
	return f.reply, f.err
}

func newCoordinator(primary *fakePrimary, fallback *fakeFallback) *Coordinator {
	return &Coordinator{
		History:  history.NewStore("persona", 20),
		Primary:  primary,
		Fallback: fallback,
	}
}

func TestWithMemory_Success(t *testing.T) {
	primary := &fakePrimary{reply: "Hi there"}
	c := newCoordinator(primary, &fakeFallback{})

	res := c.WithMemory(context.Background(), 1, "Hello")
	if !res.OK() || res.Text != "Hi there" || res.Tier != TierPrimary {
		t.Fatalf("unexpected result: %#v", res)
	}

	// Primary saw system + user turn.
	if len(primary.calls) != 1 {
		t.Fatalf("expected 1 primary call, got %d", len(primary.calls))
	}
	sent := primary.calls[0]
	if len(sent) != 2 || sent[0].Role != history.RoleSystem || sent[1].Content != "Hello" {
		t.Fatalf("unexpected turns sent to primary: %#v", sent)
	}

	// History now holds system, user, assistant.
	turns := c.History.Snapshot(1)
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns after success, got %d", len(turns))
	}
	if turns[2].Role != history.RoleAssistant || turns[2].Content != "Hi there" {
		t.Fatalf("unexpected assistant turn: %#v", turns[2])
	}
}

func TestWithMemory_PrimaryFailureKeepsUserTurn(t *testing.T) {
	primary := &fakePrimary{err: errors.New("boom")}
	c := newCoordinator(primary, &fakeFallback{})

	res := c.WithMemory(context.Background(), 1, "Hello")
	if res.OK() || res.Kind != PrimaryUnavailable {
		t.Fatalf("unexpected result: %#v", res)
	}
	if res.PrimaryErr == nil {
		t.Fatal("expected primary error recorded")
	}

	turns := c.History.Snapshot(1)
	if len(turns) != 2 || turns[1].Content != "Hello" {
		t.Fatalf("expected user turn retained after primary failure, got %#v", turns)
	}
}

func TestReply_FallbackGetsExactlyLatestText(t *testing.T) {
	primary := &fakePrimary{err: errors.New("boom")}
	fallback := &fakeFallback{reply: "fallback reply"}
	c := newCoordinator(primary, fallback)

	// Seed some prior conversation so history is non-trivial.
	c.History.Append(1, history.Turn{Role: history.RoleUser, Content: "earlier"})
	c.History.Append(1, history.Turn{Role: history.RoleAssistant, Content: "sure"})

	res := c.Reply(context.Background(), 1, "latest question")
	if !res.OK() || res.Text != "fallback reply" || res.Tier != TierFallback {
		t.Fatalf("unexpected result: %#v", res)
	}
	if res.PrimaryErr == nil {
		t.Fatal("expected primary error carried on fallback result")
	}

	if len(fallback.calls) != 1 || fallback.calls[0] != "latest question" {
		t.Fatalf("fallback must receive exactly the latest text, got %#v", fallback.calls)
	}

	// The fallback reply is never recorded in history.
	for _, turn := range c.History.Snapshot(1) {
		if turn.Content == "fallback reply" {
			t.Fatal("fallback reply leaked into history")
		}
	}
}

func TestReply_PrimarySuccessSkipsFallback(t *testing.T) {
	primary := &fakePrimary{reply: "direct"}
	fallback := &fakeFallback{reply: "unused"}
	c := newCoordinator(primary, fallback)

	res := c.Reply(context.Background(), 1, "Hello")
	if !res.OK() || res.Text != "direct" || res.Tier != TierPrimary {
		t.Fatalf("unexpected result: %#v", res)
	}
	if len(fallback.calls) != 0 {
		t.Fatalf("fallback must not be called on primary success, got %#v", fallback.calls)
	}
}

func TestReply_BothTiersFail(t *testing.T) {
	primary := &fakePrimary{err: errors.New("primary down")}
	fallback := &fakeFallback{err: errors.New("fallback down")}
	c := newCoordinator(primary, fallback)

	res := c.Reply(context.Background(), 1, "Hello")
	if res.OK() || res.Kind != FallbackUnavailable || res.Tier != TierFallback {
		t.Fatalf("unexpected result: %#v", res)
	}
	if res.Err == nil || res.PrimaryErr == nil {
		t.Fatalf("expected both errors recorded: %#v", res)
	}
}

func TestWithMemory_TrimsAfterAppend(t *testing.T) {
	primary := &fakePrimary{reply: "ok"}
	c := newCoordinator(primary, &fakeFallback{})

	for i := 0; i < 30; i++ {
		c.WithMemory(context.Background(), 1, "msg")
	}
	if got := c.History.Len(1); got > 21 {
		t.Fatalf("history exceeded retention bound: %d", got)
	}
}
