package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/thisisjab/reelbox/config"
	"github.com/thisisjab/reelbox/entity"
	"github.com/thisisjab/reelbox/querier"
)

var rootCmd = &cobra.Command{
	Use:           "reelbox",
	Short:         "reelbox catalog tools",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseMediaType(s string) (*entity.MediaType, error) {
	if s == "" {
		return nil, nil
	}

	mt, ok := entity.ParseMediaType(strings.ToLower(s))
	if !ok {
		return nil, fmt.Errorf("invalid media type %q, expected movie or series", s)
	}
	return &mt, nil
}

// printDiagnostics writes each diagnostic, pointing at its position in raw
// when it has one.
func printDiagnostics(w io.Writer, raw string, diags []querier.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s error: %s\n", d.Stage, d.Message)
		if d.Position != nil {
			fmt.Fprintf(w, "  %s\n  %s^\n", raw, strings.Repeat(" ", *d.Position))
		}
	}
}

func init() {
	var (
		dialect   string
		userID    int64
		mediaType string
	)

	explainCmd := &cobra.Command{
		Use:   "explain <query>",
		Short: "Show how a search query is segmented, parsed and compiled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := querier.SQLOptions{}
			switch dialect {
			case "sqlite":
				opts.Dialect = querier.DialectSQLite
			case "clickhouse":
				opts.Dialect = querier.DialectClickHouse
			default:
				return fmt.Errorf("invalid dialect %q", dialect)
			}

			mt, err := parseMediaType(mediaType)
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			svc := querier.NewService(logger, nil, querier.NewSQLQueryBuilder(opts))

			raw := args[0]
			e, err := svc.Explain(raw, querier.Scope{UserID: userID, MediaType: mt})

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "search term: %q\n", e.Segments.SearchTerm)
			fmt.Fprintf(w, "filter:      %q\n", e.Segments.Filter)
			fmt.Fprintf(w, "sort:        %q\n", e.Segments.Sort)

			if e.Query.Expr != nil {
				fmt.Fprintf(w, "expression:  %s\n", e.Query.Expr)
			}

			if diags := querier.Diagnostics(err); diags != nil {
				printDiagnostics(w, raw, diags)
				return fmt.Errorf("query is invalid")
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "predicate:   %s\n", querier.Format(e.Predicate.Filter))
			fmt.Fprintf(w, "primitive:   %t\n", e.Predicate.IsPrimitive)
			fmt.Fprintf(w, "sql:         %s\n", e.SQL.Query)
			fmt.Fprintf(w, "args:        %v\n", e.SQL.Args)

			return nil
		},
	}
	explainCmd.Flags().StringVar(&dialect, "dialect", "sqlite", "SQL dialect: sqlite or clickhouse")
	explainCmd.Flags().Int64Var(&userID, "user", 1, "user id the query is scoped to")
	explainCmd.Flags().StringVar(&mediaType, "type", "", "restrict to a media type: movie or series")

	rootCmd.AddCommand(explainCmd, newSearchCmd(), newAddCmd())
}

func newSearchCmd() *cobra.Command {
	var (
		cfgPath   string
		userID    int64
		mediaType string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a search query against the configured storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mt, err := parseMediaType(mediaType)
			if err != nil {
				return err
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			logger, err := cfg.NewLogger()
			if err != nil {
				return fmt.Errorf("cannot create logger: %w", err)
			}

			st, err := cfg.NewStorage()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := st.Connect(ctx); err != nil {
				return fmt.Errorf("cannot connect to storage: %w", err)
			}
			defer st.Close(context.WithoutCancel(ctx))

			builder, err := cfg.NewQueryBuilder(st)
			if err != nil {
				return err
			}

			svc := querier.NewService(logger, st, builder)
			resp, err := svc.Search(ctx, querier.SearchRequest{Query: args[0], UserID: userID, MediaType: mt, Limit: limit})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !resp.QueryValid {
				printDiagnostics(w, args[0], resp.Diagnostics)
				return fmt.Errorf("query is invalid")
			}

			for _, m := range resp.Media {
				stars := "-"
				if m.Stars != nil {
					stars = fmt.Sprintf("%g", *m.Stars)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\tstars=%s\twatched=%d\n", m.ID, m.Type, m.Title, stars, m.TimesWatched)
			}

			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "./.config.yaml", "path to config file")
	cmd.Flags().Int64Var(&userID, "user", 0, "user id to search for")
	cmd.Flags().StringVar(&mediaType, "type", "", "restrict to a media type: movie or series")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results")
	cmd.MarkFlagRequired("user") //nolint:errcheck

	return cmd
}

func newAddCmd() *cobra.Command {
	var (
		cfgPath   string
		userID    int64
		mediaType string
		stars     float64
		altTitles []string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a media item to a user's catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mt, err := parseMediaType(mediaType)
			if err != nil {
				return err
			}
			if mt == nil {
				return fmt.Errorf("--type is required")
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			st, err := cfg.NewStorage()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := st.Connect(ctx); err != nil {
				return fmt.Errorf("cannot connect to storage: %w", err)
			}
			defer st.Close(context.WithoutCancel(ctx))

			m := entity.Media{UserID: userID, Type: *mt}
			if cmd.Flags().Changed("stars") {
				m.Stars = &stars
			}

			titles := []entity.Title{{Name: args[0], IsPrimary: true}}
			for _, t := range altTitles {
				titles = append(titles, entity.Title{Name: t})
			}

			id, err := st.AddMedia(ctx, m, titles...)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "./.config.yaml", "path to config file")
	cmd.Flags().Int64Var(&userID, "user", 0, "owner of the media item")
	cmd.Flags().StringVar(&mediaType, "type", "", "media type: movie or series")
	cmd.Flags().Float64Var(&stars, "stars", 0, "rating, omitted when not set")
	cmd.Flags().StringSliceVar(&altTitles, "alt-title", nil, "additional title, may be repeated")
	cmd.MarkFlagRequired("user") //nolint:errcheck

	return cmd
}
