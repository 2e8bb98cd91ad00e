package store

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type note struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

func TestMemoryWriteRead(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if err := m.Write(ctx, "a", note{Text: "hello", Count: 3}); err != nil {
		t.Fatal(err)
	}
	var got note
	if err := m.Read(ctx, "a", &got); err != nil {
		t.Fatal(err)
	}
	if got.Text != "hello" || got.Count != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestMemoryReadMissing(t *testing.T) {
	m := NewMemory()
	var got note
	if err := m.Read(context.Background(), "missing", &got); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryDecodeError(t *testing.T) {
	m := NewMemory()
	m.Put("bad", []byte("{not json"))
	var got note
	err := m.Read(context.Background(), "bad", &got)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
	if string(de.Raw) != "{not json" {
		t.Fatalf("raw = %q", de.Raw)
	}
}

func TestMemoryWriteBatchAll(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	err := m.WriteBatch(ctx, []KV{
		{Key: "x", Value: note{Text: "x"}},
		{Key: "y", Value: note{Text: "y"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	all, err := m.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d", len(all))
	}
	if _, ok := all["x"]; !ok {
		t.Fatal("missing key x")
	}
}

func TestMemoryConcurrent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = m.Write(ctx, "k", note{Count: n})
				var got note
				_ = m.Read(ctx, "k", &got)
				_, _ = m.All(ctx)
			}
		}(i)
	}
	wg.Wait()
}

func TestConfigDSN(t *testing.T) {
	c := Config{Host: "db", Database: "longrun", Username: "u", Password: "p"}
	want := "postgres://u:p@db:5432/longrun?sslmode=disable"
	if got := c.DSN(); got != want {
		t.Fatalf("DSN = %q, want %q", got, want)
	}
}
