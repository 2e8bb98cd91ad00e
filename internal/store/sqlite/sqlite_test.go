package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/loykin/longrun/internal/store"
)

type payload struct {
	Status string `json:"status"`
	Step   int    `json:"step"`
}

func TestWriteReadUpsert(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	if err := s.Write(ctx, "op:1:meta", payload{Status: "running"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, "op:1:meta", payload{Status: "paused", Step: 2}); err != nil {
		t.Fatal(err)
	}
	var got payload
	if err := s.Read(ctx, "op:1:meta", &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != "paused" || got.Step != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestReadMissing(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()
	var got payload
	if err := s.Read(context.Background(), "none", &got); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestWriteBatchAndAll(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	err = s.WriteBatch(ctx, []store.KV{
		{Key: "op:1:meta", Value: payload{Status: "running"}},
		{Key: "op:1:progress", Value: payload{Step: 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	all, err := s.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "longrun.db")
	ctx := context.Background()

	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, "op:1:result", payload{Status: "finished"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s2.Close() }()
	var got payload
	if err := s2.Read(ctx, "op:1:result", &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != "finished" {
		t.Fatalf("got %+v", got)
	}
}

func TestDecodeErrorSurfacesRaw(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	// a stored string does not unmarshal into payload
	if err := s.Write(ctx, "legacy", "plain-string"); err != nil {
		t.Fatal(err)
	}
	var got payload
	readErr := s.Read(ctx, "legacy", &got)
	var de *store.DecodeError
	if !errors.As(readErr, &de) {
		t.Fatalf("err = %v, want DecodeError", readErr)
	}
	if string(de.Raw) != `"plain-string"` {
		t.Fatalf("raw = %s", de.Raw)
	}
}
