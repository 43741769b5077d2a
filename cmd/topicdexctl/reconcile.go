package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/topicdex/internal/app"
)

var repair bool

func init() {
	reconcileCmd.Flags().BoolVar(&repair, "repair", false, "detach every inconsistent model instead of only reporting")
	rootCmd.AddCommand(reconcileCmd, stateCmd, listCmd)
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare the registry with the corpus schemas and collections",
	Long: `Report every disagreement between the registry collection, the corpus
schemas and the existing collections. With --repair each issue is driven to
the detached state; a second run then reports nothing.

Exits with code 3 when unrepaired issues remain.`,
	Args: cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			rep, err := a.Schema.Reconcile(ctx, repair)
			if jsonOutput {
				if jerr := outputJSON(rep); jerr != nil {
					return jerr
				}
			} else {
				printReport(os.Stdout, rep)
			}
			if err != nil {
				return err
			}
			if unrepaired(rep) > 0 {
				os.Exit(ExitIssues)
			}
			return nil
		})
	},
}

var stateCmd = &cobra.Command{
	Use:   "state <corpus> <model>",
	Short: "Show the attachment state of a model on a corpus",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			st, err := a.Schema.State(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(st)
			}
			printState(os.Stdout, st)
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered corpora and their models",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			entries, err := a.Registry.List(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(entries)
			}
			printEntries(os.Stdout, entries)
			return nil
		})
	},
}
