package util

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewIDPrefix(t *testing.T) {
	id := NewID("evt")
	if !strings.HasPrefix(id, "evt_") {
		t.Fatalf("NewID(evt) = %q, want evt_ prefix", id)
	}
	if len(NewID("")) != 27 {
		t.Fatalf("expected a bare 27 character ksuid")
	}
}

func TestNewIDIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		id := NewID("")
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestNewRequestID(t *testing.T) {
	if _, err := uuid.Parse(NewRequestID()); err != nil {
		t.Fatalf("request id is not a uuid: %v", err)
	}
}
