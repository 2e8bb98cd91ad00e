package main

import "time"

// Flag structs to decouple cobra from logic for testing.

// GlobalFlags holds minimal global/persistent flags for CLI commands
type GlobalFlags struct {
	ConfigPath string
}

// StartFlags holds flags for the start command
type StartFlags struct {
	Duration    int
	Annotations []string // k=v pairs
	// Remote daemon connection
	APIUrl     string
	APITimeout time.Duration
}

// SignalFlags holds flags for pause/resume/cancel
type SignalFlags struct {
	ID string
	// Remote daemon connection
	APIUrl     string
	APITimeout time.Duration
}

// ListFlags holds flags for the list command
type ListFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

// ServeFlags holds flags for the serve command
type ServeFlags struct {
	ConfigPath string
}
