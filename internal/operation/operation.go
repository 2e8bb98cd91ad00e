package operation

import (
	"strings"
	"time"
)

// Status is the lifecycle state of an operation. The store is the single
// source of truth for it; the in-memory runner handle is advisory only.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
	StatusFinished  Status = "finished"
	// StatusFailed marks an operation finalized by the panic guard or the
	// reconciler rather than by its own work loop.
	StatusFailed Status = "failed"
	// StatusUnknown is reported by List for records that no longer decode.
	StatusUnknown Status = "unknown"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCancelled, StatusFinished, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal transition.
// running <-> paused is repeatable; cancelled/finished/failed are sinks.
// finished is reachable only from running (a paused runner never completes).
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case StatusRunning, StatusPaused:
		return from == StatusRunning || from == StatusPaused
	case StatusCancelled:
		return from == StatusRunning || from == StatusPaused
	case StatusFinished:
		return from == StatusRunning
	case StatusFailed:
		return from == StatusRunning || from == StatusPaused
	}
	return false
}

// Meta is the authoritative status/control record for an operation.
// Annotations are caller-supplied and kept apart from the reserved fields.
type Meta struct {
	Status      Status            `json:"status"`
	Duration    int               `json:"duration"`
	CreatedAt   time.Time         `json:"created_at"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// Progress is the monotone step counter. UpdatedAt doubles as the heartbeat
// used by the reconciler's staleness check.
type Progress struct {
	Step      int       `json:"step"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Result is the terminal outcome, written exactly once.
type Result struct {
	Status      Status    `json:"status"`
	CompletedAt time.Time `json:"completed_at"`
}

// Record joins the three persisted sub-records of one operation.
// Progress and Result are nil when the corresponding key is absent.
type Record struct {
	ID       string    `json:"id"`
	Meta     *Meta     `json:"meta"`
	Progress *Progress `json:"progress,omitempty"`
	Result   *Result   `json:"result,omitempty"`
}

// Persisted key layout: op:{id}:meta, op:{id}:progress, op:{id}:result.

const (
	keyPrefix      = "op:"
	metaSuffix     = ":meta"
	progressSuffix = ":progress"
	resultSuffix   = ":result"
)

func MetaKey(id string) string     { return keyPrefix + id + metaSuffix }
func ProgressKey(id string) string { return keyPrefix + id + progressSuffix }
func ResultKey(id string) string   { return keyPrefix + id + resultSuffix }

// ParseMetaKey extracts the operation id from a meta key.
// It returns ok=false for any other key shape.
func ParseMetaKey(key string) (id string, ok bool) {
	if !strings.HasPrefix(key, keyPrefix) || !strings.HasSuffix(key, metaSuffix) {
		return "", false
	}
	id = strings.TrimSuffix(strings.TrimPrefix(key, keyPrefix), metaSuffix)
	if id == "" || strings.Contains(id, ":") {
		return "", false
	}
	return id, true
}
