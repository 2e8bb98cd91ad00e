package store

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process Store for tests and demos. It keeps marshaled
// JSON so decode behavior matches the durable backends exactly.
type Memory struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]json.RawMessage)}
}

func (m *Memory) Write(_ context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = b
	m.mu.Unlock()
	return nil
}

func (m *Memory) WriteBatch(_ context.Context, kvs []KV) error {
	enc := make([]json.RawMessage, len(kvs))
	for i, kv := range kvs {
		b, err := json.Marshal(kv.Value)
		if err != nil {
			return err
		}
		enc[i] = b
	}
	m.mu.Lock()
	for i, kv := range kvs {
		m.data[kv.Key] = enc[i]
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Read(_ context.Context, key string, dest any) error {
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return &DecodeError{Key: key, Raw: append([]byte(nil), raw...), Err: err}
	}
	return nil
}

func (m *Memory) All(_ context.Context) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(m.data))
	for k, v := range m.data {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// Put stores raw bytes verbatim. Tests use it to plant malformed records.
func (m *Memory) Put(key string, raw []byte) {
	m.mu.Lock()
	m.data[key] = append(json.RawMessage(nil), raw...)
	m.mu.Unlock()
}
