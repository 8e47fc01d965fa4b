package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"doorman/internal/deps"
	"doorman/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and request status",
		RunE: func(cmd *cobra.Command, args []string) error {
			printer := newStatusPrinter(cmd.OutOrStdout())
			printer.section("Daemon")

			client, dialErr := ctx.dialClient()
			if dialErr != nil {
				printer.line("State", statusError, "not running")
			} else {
				defer client.Close()
				status, err := client.Status()
				if err != nil {
					return err
				}
				printDaemonStatus(printer, status)
			}

			printer.blank()
			printer.section("Dependencies")
			cfg := ctx.configValue()
			checks := deps.CheckBinaries(deps.Requirements(cfg))
			checks = append(checks, deps.CheckBridge(cmd.Context(), cfg.Bridge.BaseURL))
			for _, dep := range checks {
				printDependency(printer, dep)
			}
			return nil
		},
	}
}

func printDaemonStatus(printer *statusPrinter, status *ipc.StatusResponse) {
	state := "running"
	kind := statusOK
	if !status.Running {
		state = "stopped"
		kind = statusWarn
	} else if status.Paused {
		state = "paused"
		kind = statusWarn
	}
	printer.line("State", kind, fmt.Sprintf("%s (pid %d)", state, status.PID))
	printer.line("Database", statusInfo, status.DBPath)
	if status.LastError != "" {
		printer.line("Last error", statusError, status.LastError)
	}
	if cycle := status.LastCycle; cycle != nil {
		detail := fmt.Sprintf("started %s, took %s, seen=%d notified=%d executed=%d errors=%d",
			cycle.StartedAt.Format("15:04:05"), cycle.Duration,
			cycle.Seen, cycle.Notified, cycle.Executed, cycle.Errors)
		printer.line("Last cycle", statusInfo, detail)
	}

	rows := [][]string{
		{"pending", fmt.Sprintf("%d", status.Records["pending"])},
		{"actionable", fmt.Sprintf("%d", status.Records["actionable"])},
		{"executed", fmt.Sprintf("%d", status.Records["executed"])},
		{"total", fmt.Sprintf("%d", status.Records["total"])},
	}
	printer.blank()
	fmt.Fprintln(printer.out, renderTable([]string{"Records", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func printDependency(printer *statusPrinter, dep deps.Status) {
	if dep.Available {
		message := "Ready"
		if dep.Command != "" {
			message = fmt.Sprintf("Ready (command: %s)", dep.Command)
		}
		printer.line(dep.Name, statusOK, message)
		return
	}
	detail := strings.TrimSpace(dep.Detail)
	if detail == "" {
		detail = "not available"
	}
	kind := statusError
	if dep.Optional {
		kind = statusWarn
	}
	printer.line(dep.Name, kind, detail)
}

func newPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Suspend polling without stopping the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Pause(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Polling paused")
				return nil
			})
		},
	}
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume polling and trigger an immediate cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Resume(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Polling resumed")
				return nil
			})
		},
	}
}

func newWakeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "wake",
		Short: "Trigger a reconciliation cycle outside the schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Wake(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cycle requested")
				return nil
			})
		},
	}
}
