package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/loykin/longrun/pkg/client"
)

const defaultAPIUrl = "http://127.0.0.1:8080/api"

type command struct{}

func apiClientFor(apiURL string, timeout time.Duration) *client.Client {
	if apiURL == "" {
		apiURL = defaultAPIUrl
	}
	return client.New(client.Config{BaseURL: apiURL, Timeout: timeout})
}

// parseAnnotations turns repeated --annotation k=v flags into a map.
func parseAnnotations(kvs []string) (map[string]string, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	m := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			return nil, fmt.Errorf("invalid annotation %q: want key=value", kv)
		}
		m[kv[:i]] = kv[i+1:]
	}
	return m, nil
}

func (c command) Start(f StartFlags) error {
	ann, err := parseAnnotations(f.Annotations)
	if err != nil {
		return err
	}
	api := apiClientFor(f.APIUrl, f.APITimeout)
	ctx := context.Background()
	if !api.IsReachable(ctx) {
		return fmt.Errorf("daemon not reachable - please start it first with 'longrun serve'")
	}
	id, err := api.StartOperation(ctx, client.StartRequest{Duration: f.Duration, Annotations: ann})
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func (c command) Signal(verb string, f SignalFlags) error {
	if f.ID == "" {
		return fmt.Errorf("operation id is required")
	}
	api := apiClientFor(f.APIUrl, f.APITimeout)
	ctx := context.Background()
	var err error
	switch verb {
	case "pause":
		err = api.Pause(ctx, f.ID)
	case "resume":
		err = api.Resume(ctx, f.ID)
	case "cancel":
		err = api.Cancel(ctx, f.ID)
	default:
		err = fmt.Errorf("unknown signal %q", verb)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s: ok\n", verb)
	return nil
}

func (c command) List(f ListFlags) error {
	api := apiClientFor(f.APIUrl, f.APITimeout)
	recs, err := api.ListOperations(context.Background())
	if err != nil {
		return err
	}
	printJSON(recs)
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
