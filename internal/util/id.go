package util

import (
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// NewID returns a time-sortable id, optionally prefixed ("evt_...").
func NewID(prefix string) string {
	id := ksuid.New().String()
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// NewRequestID returns a random id for correlating a request's log lines.
func NewRequestID() string {
	return uuid.NewString()
}
