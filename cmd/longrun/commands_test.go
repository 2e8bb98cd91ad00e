package main

import (
	"testing"
)

func TestParseAnnotations(t *testing.T) {
	cases := []struct {
		name    string
		in      []string
		want    map[string]string
		wantErr bool
	}{
		{"empty", nil, nil, false},
		{"single", []string{"job=backup"}, map[string]string{"job": "backup"}, false},
		{"multiple", []string{"a=1", "b=2"}, map[string]string{"a": "1", "b": "2"}, false},
		{"value with equals", []string{"dsn=postgres://u:p@h/db?x=y"}, map[string]string{"dsn": "postgres://u:p@h/db?x=y"}, false},
		{"missing value separator", []string{"nope"}, nil, true},
		{"empty key", []string{"=v"}, nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseAnnotations(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for k, v := range tc.want {
				if got[k] != v {
					t.Errorf("annotation %s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestSignalRequiresID(t *testing.T) {
	c := command{}
	if err := c.Signal("pause", SignalFlags{}); err == nil {
		t.Fatal("expected error without id")
	}
}

func TestServeRequiresConfig(t *testing.T) {
	if err := runServeCommand(&ServeFlags{}, nil); err == nil {
		t.Fatal("expected error without config path")
	}
}

func TestBuildRootCommands(t *testing.T) {
	root := buildRoot()
	want := map[string]bool{
		"start": false, "pause": false, "resume": false,
		"cancel": false, "list": false, "serve": false,
	}
	for _, sub := range root.Commands() {
		name := sub.Name()
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("subcommand %s not registered", name)
		}
	}
}
