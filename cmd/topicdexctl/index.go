package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/topicdex/internal/app"
	indexinguc "github.com/kailas-cloud/topicdex/internal/usecase/indexing"
)

func init() {
	rootCmd.AddCommand(indexCorpusCmd, deleteCorpusCmd, indexModelCmd, deleteModelCmd)
}

var indexCorpusCmd = &cobra.Command{
	Use:   "index-corpus <manifest.json>",
	Short: "Index a corpus described by its manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runIndexOp("Indexed corpus", args[0], func(ctx context.Context, s *indexinguc.Service, p string) (indexinguc.Result, error) {
			return s.IndexCorpus(ctx, p)
		})
	},
}

var deleteCorpusCmd = &cobra.Command{
	Use:   "delete-corpus <manifest.json>",
	Short: "Delete a corpus and every model attached to it",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runIndexOp("Deleted corpus", args[0], func(ctx context.Context, s *indexinguc.Service, p string) (indexinguc.Result, error) {
			return s.DeleteCorpus(ctx, p)
		})
	},
}

var indexModelCmd = &cobra.Command{
	Use:   "index-model <model-dir>",
	Short: "Index a trained topic model and attach it to its corpus",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runIndexOp("Indexed model", args[0], func(ctx context.Context, s *indexinguc.Service, p string) (indexinguc.Result, error) {
			return s.IndexModel(ctx, p)
		})
	},
}

var deleteModelCmd = &cobra.Command{
	Use:   "delete-model <model-dir>",
	Short: "Detach a topic model from its corpus and delete its collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runIndexOp("Deleted model", args[0], func(ctx context.Context, s *indexinguc.Service, p string) (indexinguc.Result, error) {
			return s.DeleteModel(ctx, p)
		})
	},
}

type indexOp func(ctx context.Context, s *indexinguc.Service, path string) (indexinguc.Result, error)

func runIndexOp(verb, path string, op indexOp) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		res, err := op(ctx, a.Indexing, path)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(res)
		}
		printResult(verb, res)
		return nil
	})
}
