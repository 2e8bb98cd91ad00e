package longrun

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSupervisorFacadeLifecycle(t *testing.T) {
	sup, err := New(Options{
		Store:        NewMemoryStore(),
		StepInterval: 10 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sup.Shutdown(context.Background())
	ctx := context.Background()

	id, err := sup.Start(ctx, 3, map[string]string{"job": "facade"})
	if err != nil {
		t.Fatal(err)
	}
	if err := sup.Pause(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := sup.Resume(ctx, id); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec, err := sup.Get(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if rec.Result != nil {
			if rec.Result.Status != "finished" {
				t.Fatalf("result = %s", rec.Result.Status)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("operation did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}

	recs, err := sup.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ID != id {
		t.Fatalf("list = %+v", recs)
	}
}

func TestFacadeSentinels(t *testing.T) {
	sup, err := New(Options{Store: NewMemoryStore()})
	if err != nil {
		t.Fatal(err)
	}
	defer sup.Shutdown(context.Background())

	if err := sup.Pause(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestOpenStoreSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	st, err := OpenStore(StoreConfig{Type: "sqlite", Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = st.Close() }()
	if err := st.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("sqlite file not created: %v", err)
	}
}

func TestRegisterMetricsAndHandler(t *testing.T) {
	if err := RegisterMetrics(prometheus.NewRegistry()); err != nil {
		t.Fatal(err)
	}
	if err := RegisterMetricsDefault(); err != nil {
		t.Fatal(err)
	}
}

func TestHTTPHandlerMountable(t *testing.T) {
	sup, err := New(Options{
		Store:        NewMemoryStore(),
		StepInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sup.Shutdown(context.Background())

	h := NewHTTPHandler("/api", sup, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/start", "application/json",
		strings.NewReader(`{"duration":100}`))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
