package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"doorman/internal/ipc"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run decision database diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				health, err := client.DatabaseHealth()
				if err != nil {
					return err
				}
				printer := newStatusPrinter(cmd.OutOrStdout())
				printer.section("Decision Database")
				printer.line("Path", statusInfo, health.DBPath)
				printer.line("Exists", boolKind(health.DatabaseExists), yesNo(health.DatabaseExists))
				printer.line("Readable", boolKind(health.DatabaseReadable), yesNo(health.DatabaseReadable))
				printer.line("Table", boolKind(health.TableExists), yesNo(health.TableExists))
				printer.line("Integrity", boolKind(health.IntegrityCheck), yesNo(health.IntegrityCheck))
				printer.line("Records", statusInfo, fmt.Sprintf("%d", health.TotalRecords))
				if health.Error != "" {
					printer.line("Error", statusError, health.Error)
				}
				return nil
			})
		},
	}
}

func boolKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusError
}
