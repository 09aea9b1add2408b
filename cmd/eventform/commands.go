package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/eventform/internal/application"
	"github.com/example/eventform/internal/export"
)

func newIngestCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>",
		Short: "Create draft events from a spreadsheet (.xlsx, .xls or .csv)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return opts.withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app) error {
				result, err := a.events.Ingest(cmd.Context(), application.IngestParams{
					FileName: filepath.Base(args[0]),
					Data:     data,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "batch %s: %d events\n", result.BatchID, len(result.Events))
				for _, event := range result.Events {
					fmt.Fprintf(out, "%s\t%s\t%s\n", event.ID, event.Name, event.FormURL)
				}
				return nil
			})
		},
	}
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var eventID, outPath, quote string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export responses as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			if quote != "" {
				if _, err := export.ParseQuoting(quote); err != nil {
					return err
				}
			}
			return opts.withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app) error {
				result, err := a.reports.Export(cmd.Context(), application.ExportParams{EventID: eventID, Quoting: quote})
				if errors.Is(err, application.ErrNothingToExport) {
					fmt.Fprintln(cmd.ErrOrStderr(), "nothing to export")
					return nil
				}
				if err != nil {
					return err
				}
				if outPath == "" {
					_, err = cmd.OutOrStdout().Write(result.Content)
					return err
				}
				if err := os.WriteFile(outPath, result.Content, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", result.Rows, outPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&eventID, "event", application.AllEvents, "event id to export, or \"all\"")
	cmd.Flags().StringVar(&outPath, "out", "", "output file (default stdout)")
	cmd.Flags().StringVar(&quote, "quote", "", "quoting mode: legacy or rfc4180 (default from config)")
	return cmd
}

func newKeysCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage integration API keys",
	}

	var label string
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate a key and print it once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app) error {
				generated, err := a.keys.GenerateKey(cmd.Context(), label)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", generated.Key.ID, generated.Key.Label, generated.Key.Key)
				return nil
			})
		},
	}
	generate.Flags().StringVar(&label, "label", "", "human readable label")
	_ = generate.MarkFlagRequired("label")

	list := &cobra.Command{
		Use:   "list",
		Short: "List keys with masked secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app) error {
				views, err := a.keys.ListKeys(cmd.Context())
				if err != nil {
					return err
				}
				for _, view := range views {
					lastUsed := "never"
					if view.LastUsed != nil {
						lastUsed = formatTimestamp(*view.LastUsed)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%s\n", view.ID, view.Label, view.Masked, formatTimestamp(view.CreatedAt), lastUsed)
				}
				return nil
			})
		},
	}

	var confirmed bool
	revoke := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app) error {
				revoked, err := a.keys.RevokeKey(cmd.Context(), application.RevokeKeyParams{KeyID: args[0], Confirmed: confirmed})
				if errors.Is(err, application.ErrConfirmationRequired) {
					return fmt.Errorf("refusing to revoke %s without --yes", args[0])
				}
				if err != nil {
					return err
				}
				if !revoked {
					return fmt.Errorf("%w: key %s", application.ErrNotFound, args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
				return nil
			})
		},
	}
	revoke.Flags().BoolVar(&confirmed, "yes", false, "confirm the revocation")

	cmd.AddCommand(generate, list, revoke)
	return cmd
}
