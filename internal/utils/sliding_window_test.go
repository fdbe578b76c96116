package utils

import (
	"testing"
	"time"
)

func TestSlidingWindowAdd(t *testing.T) {
	window := NewSlidingWindow(2 * time.Second)
	now := time.Now()
	if count := window.Add("g1:u1", now); count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}
	window.Add("g1:u1", now.Add(500*time.Millisecond))
	if count := window.Count("g1:u1", now.Add(1*time.Second)); count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}
	if count := window.Count("g1:u1", now.Add(3*time.Second)); count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
}

func TestSlidingWindowKeysAreIndependent(t *testing.T) {
	window := NewSlidingWindow(time.Minute)
	now := time.Now()
	window.Add("a", now)
	window.Add("a", now)
	if count := window.Add("b", now); count != 1 {
		t.Fatalf("expected separate count for b, got %d", count)
	}
	window.Count("a", now.Add(2*time.Minute))
	if _, ok := window.hits["a"]; ok {
		t.Fatalf("expected expired key forgotten")
	}
}
