package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"doorman/internal/ipc"
)

func newRequestsCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	listCmd := &cobra.Command{
		Use:   "requests",
		Short: "List membership requests known to the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				var statuses []string
				if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
					for _, part := range strings.Split(trimmed, ",") {
						statuses = append(statuses, strings.TrimSpace(part))
					}
				}
				resp, err := client.RequestList(statuses)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Records) == 0 {
					fmt.Fprintln(stdout, "No requests found")
					return nil
				}
				rows := make([][]string, 0, len(resp.Records))
				for _, record := range resp.Records {
					rows = append(rows, []string{
						record.IdentityKey,
						record.DisplayName,
						record.Status,
						record.FirstSeenAt.Format("2006-01-02 15:04"),
						yesNo(record.Notified),
					})
				}
				table := renderTable(
					[]string{"Key", "Name", "Status", "First Seen", "Notified"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}
	listCmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Comma-separated status filter (pending, approved, declined, executed)")

	listCmd.AddCommand(newRequestShowCommand(ctx))
	return listCmd
}

func newRequestShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <identity-key>",
		Short: "Show details for one request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RequestDescribe(args[0])
				if err != nil {
					return err
				}
				printRecord(cmd, resp.Record)
				return nil
			})
		},
	}
}

func printRecord(cmd *cobra.Command, record ipc.RecordView) {
	stdout := cmd.OutOrStdout()
	fmt.Fprintf(stdout, "Key:         %s\n", record.IdentityKey)
	fmt.Fprintf(stdout, "Name:        %s\n", record.DisplayName)
	fmt.Fprintf(stdout, "Status:      %s\n", record.Status)
	fmt.Fprintf(stdout, "First seen:  %s\n", record.FirstSeenAt.Format(time.RFC3339))
	if record.DecidedAt != nil {
		fmt.Fprintf(stdout, "Decided:     %s\n", record.DecidedAt.Format(time.RFC3339))
	}
	if record.ExecutedAt != nil {
		fmt.Fprintf(stdout, "Executed:    %s\n", record.ExecutedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(stdout, "Notified:    %s\n", yesNo(record.Notified))
}

func newDecideCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "decide <identity-key> <approve|decline>",
		Short: "Record a verdict for a pending request",
		Long: "Record an approve or decline verdict for a pending request. " +
			"The daemon clicks the matching control on the next cycle, which is " +
			"triggered immediately.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Decide(args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s for %s\n",
					resp.Record.Status, resp.Record.DisplayName)
				return nil
			})
		},
	}
}
