package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/loadtest"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/occupation"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/database"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/logger"
)

type cli struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "occsearch",
		Short: "Rank occupations against free-text interests",
		Long: `occsearch builds the occupation index from the configured dataset and
ranks occupations by cosine similarity against a query.

Examples:
  occsearch search "mathematics physics" --limit 5
  occsearch occupation 15-2021.00
  occsearch import data/onet.json --to sqlite --path data/onet.db`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			if c.logLevel != "" {
				cfg.Logging.Level = c.logLevel
			}
			logger.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			c.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(c.searchCmd(), c.occupationCmd(), c.statsCmd(), c.importCmd(), c.loadtestCmd())
	return root
}

func (c *cli) searchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Rank occupations for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service.New(cmd.Context(), c.cfg, nil)
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = svc.Executor.MaxResults()
			}
			res, err := svc.Executor.SearchLimit(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res.Results)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results (default from config)")
	return cmd
}

func (c *cli) occupationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "occupation CODE",
		Short: "Show one occupation with its top items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service.New(cmd.Context(), c.cfg, nil)
			if err != nil {
				return err
			}
			match, err := svc.Executor.Occupation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), match)
		},
	}
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := service.New(cmd.Context(), c.cfg, nil)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), svc.Engine.Stats())
		},
	}
}

func (c *cli) importCmd() *cobra.Command {
	var target, path string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Load an O*NET JSON export into a database record store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := occupation.LoadJSON(args[0])
			if err != nil {
				return err
			}

			var db *database.Client
			var dialect occupation.Dialect
			switch target {
			case config.SourceSQLite:
				if path == "" {
					return fmt.Errorf("--path is required for the sqlite target")
				}
				db, err = database.OpenSQLite(path)
				dialect = occupation.SQLite
			case config.SourcePostgres:
				db, err = database.OpenPostgres(c.cfg.Postgres)
				dialect = occupation.Postgres
			default:
				return fmt.Errorf("unknown import target %q", target)
			}
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			if err := occupation.EnsureSchema(ctx, db.DB); err != nil {
				return err
			}
			err = db.InTx(ctx, func(tx *sql.Tx) error {
				return occupation.SaveSQL(ctx, tx, dialect, store)
			})
			if err != nil {
				return fmt.Errorf("importing %s: %w", args[0], err)
			}
			slog.Info("occupations imported", "count", store.Len(), "target", target)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d occupations\n", store.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "to", config.SourceSQLite, "target store: sqlite or postgres")
	cmd.Flags().StringVar(&path, "path", "", "database file for the sqlite target")
	return cmd
}

func (c *cli) loadtestCmd() *cobra.Command {
	opts := loadtest.Options{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Drive concurrent searches against a running service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Target:      %s\n", opts.BaseURL)
			fmt.Fprintf(out, "Concurrency: %d\n", opts.Concurrency)
			fmt.Fprintf(out, "Duration:    %s\n\n", opts.Duration)
			rep, err := loadtest.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			rep.Print(out)
			if rep.Total == 0 {
				return fmt.Errorf("no requests completed, is the service running at %s?", opts.BaseURL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.BaseURL, "url", "http://localhost:8080", "base URL of the search service")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 10, "number of concurrent workers")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 30*time.Second, "test duration")
	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "results requested per query")
	cmd.Flags().StringSliceVar(&opts.Queries, "query", nil, "query to send (repeatable, default built-in mix)")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
