package cache

import (
	"testing"
	"time"

	"github.com/ternarybob/arbor"
)

func newTestService() *Service {
	return NewService(arbor.NewLogger())
}

func TestSetGet(t *testing.T) {
	s := newTestService()

	s.Set("k", "v")
	got, ok := s.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get(k) = %v, %v; want v, true", got, ok)
	}

	if _, ok := s.Get("missing"); ok {
		t.Error("Get(missing) should return false")
	}
}

func TestLazyExpiry(t *testing.T) {
	s := newTestService()

	s.Set("short", 1, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, ok := s.Get("short"); ok {
		t.Error("expired entry should not be returned")
	}
}

func TestCleanup(t *testing.T) {
	s := newTestService()

	s.Set("a", 1, 10*time.Millisecond)
	s.Set("b", 2, 10*time.Millisecond)
	s.Set("c", 3, time.Hour)
	time.Sleep(20 * time.Millisecond)

	if evicted := s.Cleanup(); evicted != 2 {
		t.Errorf("Cleanup() = %d, want 2", evicted)
	}
	if _, ok := s.Get("c"); !ok {
		t.Error("unexpired entry should survive Cleanup")
	}
}

func TestVisitedSet(t *testing.T) {
	s := newTestService()

	if !s.MarkVisited("example.nl") {
		t.Error("first MarkVisited should return true")
	}
	if s.MarkVisited("example.nl") {
		t.Error("second MarkVisited should return false")
	}
	if !s.IsVisited("example.nl") {
		t.Error("IsVisited should be true after MarkVisited")
	}

	s.ClearVisited()
	if s.IsVisited("example.nl") {
		t.Error("IsVisited should be false after ClearVisited")
	}
	if !s.MarkVisited("example.nl") {
		t.Error("MarkVisited should return true after ClearVisited")
	}
}
