// Package main implements ctxcheck, a debug CLI that builds an execution
// context from flags and prints its views. Useful for verifying id schemes,
// placeholder rules, and classification behavior without a running backend.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/netra-systems/zen-sub165/internal/config"
	"github.com/netra-systems/zen-sub165/internal/execctx"
	"github.com/netra-systems/zen-sub165/internal/logging"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ctxcheck",
	Short:   "Build and inspect user execution contexts",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(sessionCmd)
}

func newFactory() (*execctx.Factory, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return execctx.NewFactory(execctx.Options{Config: cfg, Logger: logger}), nil
}

var (
	userID    string
	threadID  string
	runID     string
	requestID string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Build a context from explicit identifiers and print its views",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := newFactory()
		if err != nil {
			return err
		}
		c, err := f.New(execctx.Params{
			UserID:    userID,
			ThreadID:  threadID,
			RunID:     runID,
			RequestID: requestID,
		})
		if err != nil {
			return err
		}
		return printViews(cmd, c)
	},
}

var operation string

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Build a deterministic-session context for a (user, operation) tuple",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := newFactory()
		if err != nil {
			return err
		}
		c, err := f.NewDeterministicSession(userID, operation)
		if err != nil {
			return err
		}
		return printViews(cmd, c)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{inspectCmd, sessionCmd} {
		cmd.Flags().StringVar(&userID, "user", "", "user id")
	}
	inspectCmd.Flags().StringVar(&threadID, "thread", "", "thread id")
	inspectCmd.Flags().StringVar(&runID, "run", "", "run id")
	inspectCmd.Flags().StringVar(&requestID, "request", "", "request id (generated when empty)")
	sessionCmd.Flags().StringVar(&operation, "operation", "", "operation label")
}

func printViews(cmd *cobra.Command, c *execctx.Context) error {
	out := map[string]any{
		"correlation_id": c.CorrelationID(),
		"context":        c.ToMap(),
		"audit_trail":    c.AuditTrail(),
	}
	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return nil
}
