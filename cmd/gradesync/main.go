package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"gradesync/internal/config"
	"gradesync/internal/crawler"
	"gradesync/internal/export"
	"gradesync/internal/extractor"
	"gradesync/internal/match"
	"gradesync/internal/pipeline"
	"gradesync/internal/report"
	"gradesync/internal/storage"
	"gradesync/internal/tracker"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:           "gradesync",
		Short:         "Grade exam documents from inline points comments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	configPath      string
	dbPath          string
	verbose         bool
	includeSolution bool
	outputPath      string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "grading.yaml", "Path to the grading configuration (YAML or JSON)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to a SQLite database receiving the scores")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	exportCmd.PersistentFlags().BoolVar(&includeSolution, "solution", false, "Include the solution documents")
	exportCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "Write to a file instead of stdout")
	tableCmd.Flags().BoolVar(&includeSolution, "solution", false, "Include the solution documents")

	exportCmd.AddCommand(exportCSVCmd)
	exportCmd.AddCommand(exportJSONCmd)

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(solutionCmd)
	rootCmd.AddCommand(exerciseCmd)
	rootCmd.AddCommand(watchCmd)
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// runScan parses the whole project once.
func runScan(ctx context.Context, withSolution bool) (*config.Config, *pipeline.ScanResult, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	scan := pipeline.NewScan(cfg, newLogger())
	scan.ConfigPath = configPath
	scan.DBPath = dbPath
	scan.IncludeSolution = withSolution
	result, err := scan.Run(ctx)
	if err != nil {
		return nil, nil, err
	}
	return cfg, result, nil
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the project and print a points overview",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, result, err := runScan(cmd.Context(), false)
		if err != nil {
			return err
		}
		fmt.Printf("📂 Project root: %s\n", cfg.Project.Root)
		for _, owner := range match.Owners(result.Grouped) {
			var total float64
			for _, doc := range result.Grouped[owner] {
				total += doc.TotalPoints()
				if n := len(doc.UnmatchedExercises) + len(doc.UnmatchedPointsComments); n > 0 {
					fmt.Printf("  ⚠️ %s: %d unmatched entries\n", doc.Path, n)
				}
			}
			fmt.Printf("  -> %s: %s points in %d documents\n", owner, export.FormatPoints(total), len(result.Grouped[owner]))
		}
		fmt.Println("✅ Scan complete.")
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the achieved points of every owner",
}

// withOutput runs write against stdout or the --output file.
func withOutput(write func(f *os.File) error) error {
	if outputPath == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✅ Exported to %s\n", outputPath)
	return nil
}

var exportCSVCmd = &cobra.Command{
	Use:   "csv",
	Short: "One row per owner with the achieved points per exercise",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, result, err := runScan(cmd.Context(), includeSolution)
		if err != nil {
			return err
		}
		return withOutput(func(f *os.File) error {
			return export.CSV(f, cfg.Schema(), result.Grouped)
		})
	},
}

var exportJSONCmd = &cobra.Command{
	Use:   "json",
	Short: "Every scored document keyed by owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, result, err := runScan(cmd.Context(), includeSolution)
		if err != nil {
			return err
		}
		return withOutput(func(f *os.File) error {
			return export.JSON(f, result.Grouped)
		})
	},
}

var tableCmd = &cobra.Command{
	Use:       "table [points|present|graded]",
	Short:     "Print an overview table of all owners",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(report.KindPoints), string(report.KindPresent), string(report.KindGraded)},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := report.KindPoints
		if len(args) > 0 {
			k, err := report.ParseKind(args[0])
			if err != nil {
				return err
			}
			kind = k
		}

		cfg, result, err := runScan(cmd.Context(), includeSolution)
		if err != nil {
			return err
		}
		tbl, err := report.Build(kind, cfg.Schema(), result.Grouped)
		if err != nil {
			return err
		}
		fmt.Println(tbl.Render())
		return nil
	},
}

var solutionCmd = &cobra.Command{
	Use:   "solution <exercise-id>",
	Short: "Print the solution of an exercise",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, result, err := runScan(cmd.Context(), true)
		if err != nil {
			return err
		}
		text, err := report.SolutionText(result.Grouped[tracker.SolutionID], args[0])
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

var exerciseCmd = &cobra.Command{
	Use:   "exercise <exercise-id>",
	Short: "Print every owner's answer to an exercise",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, result, err := runScan(cmd.Context(), true)
		if err != nil {
			return err
		}
		text, err := report.ExerciseTexts(result.Grouped, args[0])
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	},
}

var locateCmd = &cobra.Command{
	Use:   "locate <file> <line[:column]>",
	Short: "Show the exercise at a position of a document (1-based)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, err := parsePosition(args[1])
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tr, err := tracker.New(cfg, tracker.FileSource{Root: cfg.Project.Root}, tracker.Hooks{}, newLogger())
		if err != nil {
			return err
		}
		defer tr.Stop()

		doc, err := tr.Handle(args[0])
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("%s is not an exam document", args[0])
		}
		ex, occ := match.ExerciseAt(doc, pos)
		if ex == nil {
			fmt.Println("No exercise at this position.")
			return nil
		}
		fmt.Printf("%s (lines %d-%d): %s / %s points\n", ex.ID, occ.Range.Start.Line+1, occ.Range.End.Line+1,
			export.FormatPoints(ex.AchievedTotalPoints), export.FormatPoints(ex.TotalPoints))
		return nil
	},
}

// parsePosition reads "line" or "line:column", both 1-based.
func parsePosition(s string) (extractor.Position, error) {
	lineText, colText, hasCol := strings.Cut(s, ":")
	line, err := strconv.Atoi(lineText)
	if err != nil || line < 1 {
		return extractor.Position{}, fmt.Errorf("invalid line %q", lineText)
	}
	col := 1
	if hasCol {
		col, err = strconv.Atoi(colText)
		if err != nil || col < 1 {
			return extractor.Position{}, fmt.Errorf("invalid column %q", colText)
		}
	}
	return extractor.Position{Line: line - 1, Column: col - 1}, nil
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rescore documents as they change",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var store storage.Store
		if dbPath != "" {
			s, err := storage.NewSQLiteStore(dbPath)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer s.Close()
			store = s
		}

		hooks := tracker.Hooks{
			Published: func(prev, next *match.Document) {
				if prev != nil {
					fmt.Printf("🔄 %s [%s]: %s points\n", next.Path, next.Owner, export.FormatPoints(next.TotalPoints()))
				}
				if store != nil {
					if err := store.SaveDocument(ctx, next); err != nil {
						logger.Error().Err(err).Str("path", next.Path).Msg("failed to save document")
					}
				}
			},
		}
		tr, err := tracker.New(cfg, tracker.FileSource{Root: cfg.Project.Root}, hooks, logger)
		if err != nil {
			return err
		}
		defer tr.Stop()

		filter, err := crawler.ProjectFilter(cfg, configPath, dbPath)
		if err != nil {
			return err
		}

		start := time.Now()
		grouped, err := crawler.NewCrawler(tr, cfg.ExamFiles.Ignore, filter, logger).Collect(cfg.Project.Root, true)
		if err != nil {
			return err
		}
		fmt.Printf("📊 Tracking %d owners (%v).\n", len(grouped), time.Since(start).Round(time.Millisecond))

		sync, err := pipeline.NewIncrementalSync(configPath, cfg, tr, filter, logger)
		if err != nil {
			return err
		}
		defer sync.Close()

		sync.Removed = func(path string) {
			fmt.Printf("🗑️ %s removed\n", path)
			if store != nil {
				if err := store.DeleteDocument(ctx, path); err != nil {
					logger.Error().Err(err).Str("path", path).Msg("failed to delete document")
				}
			}
		}
		sync.Reloaded = func(cfg *config.Config) {
			fmt.Println("⚙️ Configuration reloaded.")
			filter, err := crawler.ProjectFilter(cfg, configPath, dbPath)
			if err != nil {
				logger.Error().Err(err).Msg("rescan failed")
				return
			}
			if _, err := crawler.NewCrawler(tr, cfg.ExamFiles.Ignore, filter, logger).Collect(cfg.Project.Root, true); err != nil {
				logger.Error().Err(err).Msg("rescan failed")
			}
		}

		fmt.Println("👀 Watching for changes. Press Ctrl+C to stop.")
		return sync.Run(ctx)
	},
}
