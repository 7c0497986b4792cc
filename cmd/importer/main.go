// Command importer loads card data into the catalog from JSON files, a YAML
// manifest or the upstream card API.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/card-nexus/internal/config"
	"github.com/codyseavey/card-nexus/internal/database"
	"github.com/codyseavey/card-nexus/internal/importer"
	"github.com/codyseavey/card-nexus/internal/logging"
)

var (
	cfg config.Config
	log *zap.Logger

	strategyFlag  string
	progressEvery int
	dbDriver      string
	dbPath        string
	databaseURL   string

	dataDir     string
	regulations []string
	languages   []string
	allCards    bool

	apiQuery    string
	apiMaxPages int
	apiDump     string
	apiNoLoad   bool
)

var errCancelled = errors.New("import cancelled")

var rootCmd = &cobra.Command{
	Use:   "importer",
	Short: "Load card data into the Card Nexus catalog",
	Long: `Normalizes card records from JSON files or the card API and upserts
them into the catalog. Re-running an import over the same data is safe:
records are matched to stored cards by api id or by
(card number, expansion, game title) depending on --strategy.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log = logging.Must(cfg.LogLevel, cfg.LogFormat)
	},
}

var filesCmd = &cobra.Command{
	Use:   "files [paths...]",
	Short: "Import JSON card files",
	Long: `Imports explicit files plus any regulation partitions selected with
--regulation/--lang and, with --all, the all-cards dump in --data-dir.

Example:
  importer files --regulation G,H --lang en,ja
  importer files ./data/promos.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := resolvePaths(args, dataDir, regulations, languages, allCards)
		if len(paths) == 0 {
			return errors.New("nothing to import: pass file paths, --regulation or --all")
		}
		strategy, err := importer.ParseStrategy(strategyFlag)
		if err != nil {
			return err
		}
		return runFiles(cmd, paths, strategy, progressEvery)
	},
}

var manifestCmd = &cobra.Command{
	Use:   "manifest <file.yaml>",
	Short: "Import the files described by a YAML manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := importer.LoadManifest(args[0])
		if err != nil {
			return err
		}
		// Flags given explicitly win over the manifest.
		strategyName := m.Strategy
		if cmd.Flags().Changed("strategy") {
			strategyName = strategyFlag
		}
		every := m.ProgressEvery
		if cmd.Flags().Changed("progress-every") {
			every = progressEvery
		}
		strategy, err := importer.ParseStrategy(strategyName)
		if err != nil {
			return err
		}
		return runFiles(cmd, m.Paths(), strategy, every)
	},
}

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Fetch cards from the card API and import them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client := importer.NewCardAPIClient(importer.CardAPIConfig{
			BaseURL:  cfg.CardAPIBaseURL,
			APIKey:   cfg.CardAPIKey,
			PageSize: cfg.CardAPIPageSize,
			Delay:    cfg.CardAPIDelay,
		}, log)

		var runner *importer.Runner
		if !apiNoLoad {
			strategy, err := importer.ParseStrategy(strategyFlag)
			if err != nil {
				return err
			}
			db, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			runner, err = newRunner(cmd, db, strategy, progressEvery)
			if err != nil {
				return err
			}
		} else if apiDump == "" {
			return errors.New("--no-load needs --dump, otherwise nothing is kept")
		}

		run, err := importer.NewAPISync(client, runner, log).Run(ctx, importer.APISyncOptions{
			Query:    apiQuery,
			MaxPages: apiMaxPages,
			DumpPath: apiDump,
			SkipLoad: apiNoLoad,
		})
		if err != nil {
			return err
		}
		if runner != nil {
			importer.PrintSummary(cmd.OutOrStdout(), run)
		}
		if run.Cancelled {
			return errCancelled
		}
		return nil
	},
}

func init() {
	cfg = config.Load()

	rootCmd.PersistentFlags().StringVar(&strategyFlag, "strategy", string(importer.StrategyAuto), "Key strategy: auto, apiid or composite")
	rootCmd.PersistentFlags().IntVar(&progressEvery, "progress-every", importer.DefaultProgressEvery, "Print progress every N records")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", cfg.DBDriver, "Storage driver: sqlite or postgres")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", cfg.DBPath, "SQLite database file")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", cfg.DatabaseURL, "Postgres DSN")

	filesCmd.Flags().StringVar(&dataDir, "data-dir", cfg.DataDir, "Directory holding regulation partitions")
	filesCmd.Flags().StringSliceVar(&regulations, "regulation", nil, "Regulation marks to import, e.g. G,H")
	filesCmd.Flags().StringSliceVar(&languages, "lang", []string{""}, "Partition languages, e.g. en,ja")
	filesCmd.Flags().BoolVar(&allCards, "all", false, "Also import "+importer.AllCardsFile)

	apiCmd.Flags().StringVar(&apiQuery, "query", "", "Upstream search expression (q parameter)")
	apiCmd.Flags().IntVar(&apiMaxPages, "max-pages", 0, "Stop after N pages (0 = all)")
	apiCmd.Flags().StringVar(&apiDump, "dump", "", "Write fetched records to this file")
	apiCmd.Flags().BoolVar(&apiNoLoad, "no-load", false, "Fetch (and dump) without importing")

	rootCmd.AddCommand(filesCmd, manifestCmd, apiCmd)
}

func main() {
	err := rootCmd.Execute()
	if log != nil {
		_ = log.Sync()
	}
	if err != nil {
		if errors.Is(err, errCancelled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func openDB() (*gorm.DB, error) {
	db, err := database.Open(database.Options{
		Driver:      dbDriver,
		Path:        dbPath,
		DatabaseURL: databaseURL,
		Debug:       cfg.LogLevel == "debug",
	}, log)
	if err != nil {
		return nil, fmt.Errorf("connect to storage: %w", err)
	}
	return db, nil
}

func newRunner(cmd *cobra.Command, db *gorm.DB, strategy importer.KeyStrategy, every int) (*importer.Runner, error) {
	loader, err := importer.NewLoader(db, strategy, log)
	if err != nil {
		return nil, err
	}
	return importer.NewRunner(loader, log,
		importer.WithProgressEvery(every),
		importer.WithOutput(cmd.OutOrStdout()),
	), nil
}

func runFiles(cmd *cobra.Command, paths []string, strategy importer.KeyStrategy, every int) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB()
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	runner, err := newRunner(cmd, db, strategy, every)
	if err != nil {
		return err
	}

	log.Info("Starting import", zap.Int("files", len(paths)), zap.String("strategy", string(strategy)))
	run := runner.Run(ctx, paths)
	importer.PrintSummary(cmd.OutOrStdout(), run)
	if run.Cancelled {
		return errCancelled
	}
	return nil
}

// resolvePaths orders explicit files first, then regulation partitions, then
// the all-cards dump.
func resolvePaths(args []string, dir string, regs, langs []string, all bool) []string {
	paths := append([]string{}, args...)
	if len(langs) == 0 {
		langs = []string{""}
	}
	paths = append(paths, importer.RegulationFiles(dir, regs, langs)...)
	if all {
		paths = append(paths, filepath.Join(dir, importer.AllCardsFile))
	}
	return paths
}
