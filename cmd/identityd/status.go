// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// ServiceStatus holds the probe results for a running identityd.
type ServiceStatus struct {
	Addr  string `json:"addr"`
	Live  bool   `json:"live"`
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	addr       string
	jsonOutput bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show health of a running identity service",
		Long:  `Probe the liveness and readiness endpoints of a running identityd.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.addr, "addr", "127.0.0.1:9100", "observability address of the running service")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	status := probeService(cmd.Context(), cfg.addr)

	if cfg.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status) //nolint:wrapcheck
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ADDR\tLIVE\tREADY\tERROR")
	fmt.Fprintf(w, "%s\t%t\t%t\t%s\n", status.Addr, status.Live, status.Ready, status.Error)
	return w.Flush() //nolint:wrapcheck
}

func probeService(ctx context.Context, addr string) ServiceStatus {
	status := ServiceStatus{Addr: addr}

	live, err := probe(ctx, addr, "/healthz/liveness")
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Live = live

	ready, err := probe(ctx, addr, "/healthz/readiness")
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Ready = ready

	return status
}

func probe(ctx context.Context, addr, path string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+path, nil)
	if err != nil {
		return false, err //nolint:wrapcheck
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false, err //nolint:wrapcheck
	}
	defer resp.Body.Close() //nolint:errcheck

	return resp.StatusCode == http.StatusOK, nil
}
