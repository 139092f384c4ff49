package memory

import (
	"testing"

	"factzap-service/internal/app"
	"factzap-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	session, err := app.NewSession("s1", "u1", []domain.Question{{
		Type: "boolean", Difficulty: "easy", Text: "q", CorrectAnswer: "True", IncorrectAnswers: []string{"False"},
	}}, false)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	if _, ok := store.Get("u1"); ok {
		t.Fatalf("expected no session before put")
	}

	store.Put("u1", session)
	got, ok := store.Get("u1")
	if !ok || got.ID() != "s1" {
		t.Fatalf("expected stored session, got %v ok=%v", got, ok)
	}

	store.Delete("u1")
	if _, ok := store.Get("u1"); ok {
		t.Fatalf("expected session removed")
	}
}
