package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/lexgraph/pkg/ai/adapter"
	"github.com/OFFIS-RIT/lexgraph/pkg/config"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
	"github.com/OFFIS-RIT/lexgraph/pkg/pipeline"
	"github.com/OFFIS-RIT/lexgraph/pkg/store"
	"github.com/OFFIS-RIT/lexgraph/pkg/store/backend"
)

var buildCmd = &cobra.Command{
	Use:   "build <input.json>",
	Short: "Run the construction pipeline on one document",
	Long: `Reads a pipeline input (entities, relationships, citations and chunks)
from a JSON file, or stdin when the path is "-", runs every enabled stage and
persists the graph to the configured store.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

var (
	buildJSON       bool
	buildStore      string
	buildSQLitePath string
	buildDocumentID string
	buildRunID      string
)

func init() {
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "Print the full run result as JSON")
	buildCmd.Flags().StringVar(&buildStore, "store", "", "Store backend override: memory, sqlite, postgres or neo4j")
	buildCmd.Flags().StringVar(&buildSQLitePath, "sqlite-path", "", "SQLite database file for the sqlite store")
	buildCmd.Flags().StringVar(&buildDocumentID, "document", "", "Document id, overrides the one in the input")
	buildCmd.Flags().StringVar(&buildRunID, "run-id", "", "Run id, generated when empty")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	in, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	if buildDocumentID != "" {
		in.DocumentID = buildDocumentID
	}
	if buildRunID != "" {
		in.RunID = buildRunID
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if buildStore != "" {
		cfg.Store.Backend = buildStore
	}
	if buildSQLitePath != "" {
		cfg.Store.SQLitePath = buildSQLitePath
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var storage store.GraphStorage
	if cfg.Pipeline.Enabled(config.StagePersist) {
		storage, err = backend.Open(ctx, cfg.Store)
		if err != nil {
			return fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
		}
		defer func() {
			if err := storage.Close(); err != nil {
				logger.Warn("[CLI] Failed to close store", "err", err)
			}
		}()
	}

	generator, err := adapter.New(cfg.Summary)
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg, pipeline.Options{Storage: storage, Generator: generator})
	if err != nil {
		return err
	}

	res := p.Run(ctx, in)
	if buildJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	} else {
		printSummary(cmd.OutOrStdout(), res)
	}

	if !res.Success && res.Failure != nil {
		return res.Failure
	}
	return nil
}

func readInput(stdin io.Reader, path string) (pipeline.Input, error) {
	var in pipeline.Input

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return in, fmt.Errorf("failed to read input: %w", err)
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("failed to parse input %s: %w", path, err)
	}
	if len(in.Entities) == 0 {
		return in, errors.New("input has no entities")
	}
	return in, nil
}

func printSummary(w io.Writer, res pipeline.Result) {
	s := res.Summary
	fmt.Fprintf(w, "Run %s: %s\n", s.RunID, res.State)
	if s.DocumentID != "" {
		fmt.Fprintf(w, "  document:      %s\n", s.DocumentID)
	}
	fmt.Fprintf(w, "  entities:      %d raw -> %d canonical (%d merges, %.1f%% dedup)\n",
		s.RawEntities, s.CanonicalEntities, s.Merges, s.DedupRate*100)
	fmt.Fprintf(w, "  relationships: %d\n", s.Relationships)
	fmt.Fprintf(w, "  communities:   %d\n", s.Communities)
	fmt.Fprintf(w, "  density:       %.4f\n", s.Density)
	if res.Quality.Grade != "" {
		fmt.Fprintf(w, "  quality:       %s (%.2f)\n", res.Quality.Grade, res.Quality.Overall)
	}
	if res.Receipt != nil {
		fmt.Fprintf(w, "  stored:        %s (%d nodes, %d edges)\n", res.Receipt.Backend, res.Receipt.Nodes, res.Receipt.Edges)
	}
	fmt.Fprintf(w, "  elapsed:       %dms\n", s.ElapsedMs)

	for _, h := range res.Highlights {
		fmt.Fprintf(w, "  * %s\n", h)
	}
	for _, warning := range append(res.Warnings, res.Quality.Warnings...) {
		fmt.Fprintf(w, "  ! %s\n", warning)
	}
	if res.Failure != nil {
		fmt.Fprintf(w, "  failed in %s: %s\n", res.Failure.Stage, res.Failure.Message)
	}
}
