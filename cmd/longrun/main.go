package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot creates the root command and its subcommands
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	cmd := command{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createStartCommand(cmd),
		createSignalCommand(cmd, "pause", "Pause a running operation"),
		createSignalCommand(cmd, "resume", "Resume a paused operation"),
		createSignalCommand(cmd, "cancel", "Request cancellation of an operation"),
		createListCommand(cmd),
		createServeCommand(globalFlags),
	)
	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "longrun",
		Short: "Long-running operation supervisor",
		Long: `Longrun supervises durable long-running operations: start, pause,
resume, cancel, and list them locally or via a remote daemon connection.

Examples:
  longrun start --duration=5 --annotation=job=backup
  longrun pause --id=<operation-id>
  longrun serve --config=longrun.toml   # Start daemon
  longrun list --api-url=http://remote:8080/api`,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

func addAPIFlags(c *cobra.Command, apiURL *string, timeout *time.Duration) {
	c.Flags().StringVar(apiURL, "api-url", "", "daemon API base URL (default "+defaultAPIUrl+")")
	c.Flags().DurationVar(timeout, "api-timeout", 10*time.Second, "API request timeout")
}

func createStartCommand(c command) *cobra.Command {
	f := &StartFlags{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new long-running operation",
		Long: `Start a new operation of the given duration (in work units).
The operation id is printed on success.

Examples:
  longrun start --duration=5
  longrun start --duration=10 --annotation=job=backup --annotation=owner=ops`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Start(*f)
		},
	}
	cmd.Flags().IntVar(&f.Duration, "duration", 1, "number of work units to perform")
	cmd.Flags().StringArrayVar(&f.Annotations, "annotation", nil, "annotation key=value (repeatable)")
	addAPIFlags(cmd, &f.APIUrl, &f.APITimeout)
	return cmd
}

func createSignalCommand(c command, verb, short string) *cobra.Command {
	f := &SignalFlags{}
	cmd := &cobra.Command{
		Use:   verb,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Signal(verb, *f)
		},
	}
	cmd.Flags().StringVar(&f.ID, "id", "", "operation id")
	addAPIFlags(cmd, &f.APIUrl, &f.APITimeout)
	return cmd
}

func createListCommand(c command) *cobra.Command {
	f := &ListFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all operations with progress and result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.List(*f)
		},
	}
	addAPIFlags(cmd, &f.APIUrl, &f.APITimeout)
	return cmd
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	f := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the longrun daemon",
		Long: `Start the longrun daemon server.
All configuration is loaded from the TOML config file.

Examples:
  longrun serve config.toml
  longrun serve --config=config.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.ConfigPath == "" {
				f.ConfigPath = globalFlags.ConfigPath
			}
			return runServeCommand(f, args)
		},
	}
	cmd.Flags().StringVar(&f.ConfigPath, "config", "", "path to TOML config file")
	return cmd
}
