package history

import (
	"fmt"
	"sync"
	"testing"
)

const testPersona = "You are a helpful assistant named Handle Warrior and developed by Saswata Pal."

func TestGetOrCreate_SeedsPersonaTurn(t *testing.T) {
	s := NewStore(testPersona, 20)

	turns := s.GetOrCreate(42)
	if len(turns) != 1 {
		t.Fatalf("expected seeded history of 1 turn, got %d", len(turns))
	}
	if turns[0].Role != RoleSystem || turns[0].Content != testPersona {
		t.Fatalf("unexpected seed turn: %#v", turns[0])
	}

	// A second call returns the same history, not a fresh seed.
	s.Append(42, Turn{Role: RoleUser, Content: "Hello"})
	turns = s.GetOrCreate(42)
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns after append, got %d", len(turns))
	}
}

func TestFirstExchange(t *testing.T) {
	s := NewStore(testPersona, 20)

	s.Append(7, Turn{Role: RoleUser, Content: "Hello"})
	turns := s.Snapshot(7)
	if len(turns) != 2 || turns[0].Role != RoleSystem || turns[1].Content != "Hello" {
		t.Fatalf("unexpected history after user turn: %#v", turns)
	}

	s.Append(7, Turn{Role: RoleAssistant, Content: "Hi there"})
	turns = s.Snapshot(7)
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[2].Role != RoleAssistant || turns[2].Content != "Hi there" {
		t.Fatalf("unexpected assistant turn: %#v", turns[2])
	}
}

func TestTrim_KeepsPersonaAndRecentWindow(t *testing.T) {
	s := NewStore(testPersona, 20)

	// 1 system + 24 others, then one more user turn: 25 others in total.
	for i := 0; i < 24; i++ {
		s.Append(1, Turn{Role: RoleUser, Content: fmt.Sprintf("msg-%d", i)})
	}
	s.Append(1, Turn{Role: RoleUser, Content: "msg-24"})

	s.Trim(1)

	turns := s.Snapshot(1)
	if len(turns) != 21 {
		t.Fatalf("expected 21 turns after trim, got %d", len(turns))
	}
	if turns[0].Role != RoleSystem {
		t.Fatalf("persona turn evicted: %#v", turns[0])
	}
	// Last 20 of the 25 non-system turns are msg-5 .. msg-24.
	if turns[1].Content != "msg-5" {
		t.Fatalf("expected oldest retained turn msg-5, got %q", turns[1].Content)
	}
	if turns[20].Content != "msg-24" {
		t.Fatalf("expected newest turn msg-24, got %q", turns[20].Content)
	}
}

func TestTrim_NoOpAtOrBelowBound(t *testing.T) {
	s := NewStore(testPersona, 20)
	for i := 0; i < 21; i++ {
		s.Append(1, Turn{Role: RoleUser, Content: fmt.Sprintf("msg-%d", i)})
	}
	// 22 turns total: one over the bound.
	s.Trim(1)
	if got := s.Len(1); got != 21 {
		t.Fatalf("expected 21 turns, got %d", got)
	}

	before := s.Snapshot(1)
	s.Trim(1)
	after := s.Snapshot(1)
	if len(before) != len(after) {
		t.Fatalf("second trim changed length: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("trim not idempotent at index %d: %#v vs %#v", i, before[i], after[i])
		}
	}
}

func TestTrim_NeverExceedsBound(t *testing.T) {
	s := NewStore(testPersona, 20)
	for i := 0; i < 100; i++ {
		s.Append(9, Turn{Role: RoleUser, Content: fmt.Sprintf("msg-%d", i)})
		s.Trim(9)
		if got := s.Len(9); got > 21 {
			t.Fatalf("history exceeded bound after %d appends: %d", i+1, got)
		}
		if turns := s.Snapshot(9); turns[0].Role != RoleSystem {
			t.Fatalf("persona turn lost after %d appends", i+1)
		}
	}
}

func TestSnapshot_MissingUser(t *testing.T) {
	s := NewStore(testPersona, 20)
	if turns := s.Snapshot(404); turns != nil {
		t.Fatalf("expected nil snapshot for unknown user, got %#v", turns)
	}
	if got := s.Len(404); got != 0 {
		t.Fatalf("expected zero length for unknown user, got %d", got)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := NewStore(testPersona, 20)
	s.Append(1, Turn{Role: RoleUser, Content: "original"})

	turns := s.Snapshot(1)
	turns[1].Content = "mutated"

	if got := s.Snapshot(1)[1].Content; got != "original" {
		t.Fatalf("snapshot mutation leaked into store: %q", got)
	}
}

func TestConcurrentAppends(t *testing.T) {
	s := NewStore(testPersona, 20)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Append(int64(g%2), Turn{Role: RoleUser, Content: "x"})
				s.Trim(int64(g % 2))
			}
		}(g)
	}
	wg.Wait()

	for _, userID := range []int64{0, 1} {
		if got := s.Len(userID); got > 21 {
			t.Fatalf("user %d history exceeded bound: %d", userID, got)
		}
		if turns := s.Snapshot(userID); turns[0].Role != RoleSystem {
			t.Fatalf("user %d lost persona turn", userID)
		}
	}
}
