package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/loykin/longrun/internal/metrics"
	"github.com/loykin/longrun/internal/store"
	"github.com/loykin/longrun/internal/tools/github"
	"github.com/loykin/longrun/internal/tools/shellexec"
)

// A small two-agent composition: a coordinator delegates requests to worker
// agents, sequentially or fanned out in parallel, and persists the composed
// result to the store.

// IssueSearcher is what a worker needs from the GitHub tool.
type IssueSearcher interface {
	SearchIssues(ctx context.Context, query string) ([]github.Issue, error)
}

// CommandRunner is what a worker needs from the exec tool.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (shellexec.Result, error)
}

// Tools bundles the tool set shared by all workers.
type Tools struct {
	GitHub IssueSearcher
	Exec   CommandRunner
}

// Request is one unit of coordinator work.
type Request struct {
	ID   string `json:"id"`
	Task string `json:"task"`
}

// WorkerResult is the outcome of one worker's Perform call.
type WorkerResult struct {
	Worker     string            `json:"worker"`
	Type       string            `json:"type"`
	Status     string            `json:"status"`
	IssueCount int               `json:"issue_count,omitempty"`
	Output     *shellexec.Result `json:"output,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Response is the composed result persisted under req-{id}.
type Response struct {
	RequestID string         `json:"request_id"`
	Mode      string         `json:"mode"`
	Results   []WorkerResult `json:"results"`
}

// Worker performs tasks using the shared tools. Tasks that match no tool
// fall back to a short simulated run with heartbeat counters.
type Worker struct {
	name        string
	tools       Tools
	st          store.Store
	logger      *slog.Logger
	simUnits    int
	simInterval time.Duration
}

func (w *Worker) Perform(ctx context.Context, req Request) WorkerResult {
	metrics.IncWorkerTask()
	w.logger.Info("worker starting task", "worker", w.name, "request", req.ID, "task", req.Task)

	task := strings.ToLower(req.Task)
	var res WorkerResult
	switch {
	case strings.Contains(task, "repo") && w.tools.GitHub != nil:
		issues, err := w.tools.GitHub.SearchIssues(ctx, "is:open "+req.Task)
		if err != nil {
			res = WorkerResult{Worker: w.name, Type: "github_search", Status: "error", Error: err.Error()}
		} else {
			res = WorkerResult{Worker: w.name, Type: "github_search", Status: "done", IssueCount: len(issues)}
			w.logger.Info("github search complete", "worker", w.name, "issues", len(issues))
		}
	case (strings.Contains(task, "execute") || strings.Contains(task, "run")) && w.tools.Exec != nil:
		out, err := w.tools.Exec.Run(ctx, "echo", "hello from exec")
		if err != nil {
			res = WorkerResult{Worker: w.name, Type: "exec", Status: "error", Error: err.Error()}
		} else {
			res = WorkerResult{Worker: w.name, Type: "exec", Status: "done", Output: &out}
		}
	default:
		w.logger.Info("simulating long-running task", "worker", w.name, "units", w.simUnits)
		for i := 0; i < w.simUnits; i++ {
			select {
			case <-ctx.Done():
				return WorkerResult{Worker: w.name, Type: "simulated", Status: "error", Error: ctx.Err().Error()}
			case <-time.After(w.simInterval):
			}
			metrics.IncWorkerHeartbeat()
		}
		res = WorkerResult{Worker: w.name, Type: "simulated", Status: "done"}
	}

	if err := w.st.Write(ctx, w.name+"-last", res); err != nil {
		w.logger.Warn("persist worker result failed", "worker", w.name, "err", err)
	}
	w.logger.Info("worker task finished", "worker", w.name, "type", res.Type, "status", res.Status)
	return res
}

// Coordinator receives requests and delegates to its workers.
type Coordinator struct {
	st      store.Store
	logger  *slog.Logger
	workers []*Worker
}

// Options configures a Coordinator. Store is required.
type Options struct {
	Store  store.Store
	Logger *slog.Logger
	Tools  Tools
	// Workers is the number of worker agents (default 2).
	Workers int
	// SimUnits/SimInterval shape the simulated fallback run
	// (defaults 5 units of 1s).
	SimUnits    int
	SimInterval time.Duration
}

func NewCoordinator(opts Options) (*Coordinator, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("agent: store is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.SimUnits <= 0 {
		opts.SimUnits = 5
	}
	if opts.SimInterval <= 0 {
		opts.SimInterval = time.Second
	}
	c := &Coordinator{st: opts.Store, logger: opts.Logger}
	for i := 1; i <= opts.Workers; i++ {
		c.workers = append(c.workers, &Worker{
			name:        fmt.Sprintf("worker-%d", i),
			tools:       opts.Tools,
			st:          opts.Store,
			logger:      opts.Logger,
			simUnits:    opts.SimUnits,
			simInterval: opts.SimInterval,
		})
	}
	return c, nil
}

// HandleRequest delegates req to all workers. A task mentioning "parallel"
// fans out concurrently; everything else runs sequentially. The composed
// response is persisted under req-{id}.
func (c *Coordinator) HandleRequest(ctx context.Context, req Request) (Response, error) {
	metrics.IncAgentRequest()
	mode := "sequential"
	if strings.Contains(strings.ToLower(req.Task), "parallel") {
		mode = "parallel"
	}

	var results []WorkerResult
	if mode == "parallel" {
		var (
			wg sync.WaitGroup
			mu sync.Mutex
		)
		for _, w := range c.workers {
			wg.Add(1)
			go func(w *Worker) {
				defer wg.Done()
				r := w.Perform(ctx, req)
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}(w)
		}
		wg.Wait()
	} else {
		for _, w := range c.workers {
			results = append(results, w.Perform(ctx, req))
		}
	}

	success := false
	for _, r := range results {
		if r.Status == "done" {
			success = true
			break
		}
	}
	metrics.SetLastRequestSuccess(success)

	out := Response{RequestID: req.ID, Mode: mode, Results: results}
	if err := c.st.Write(ctx, "req-"+req.ID, out); err != nil {
		return out, fmt.Errorf("persist response: %w", err)
	}
	c.logger.Info("request handled", "request", req.ID, "mode", mode, "success", success)
	return out, nil
}
