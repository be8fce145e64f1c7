package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"NewsSummarizer/internal/config"
	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/infrastructure/storage"
)

func newRetryCmd(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "retry [ARTICLE_ID...]",
		Short: "Move failed articles back to pending so the worker summarizes them again",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("pass article IDs or --all, not both")
			}

			return withStore(cmd.Context(), opts, func(_ config.Config, store *storage.SQLStore) error {
				out := cmd.OutOrStdout()
				if all {
					n, err := store.RetryAllFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "requeued %d failed articles\n", n)
					return nil
				}

				var errs []error
				for _, id := range args {
					if err := store.RetryArticle(cmd.Context(), id); err != nil {
						errs = append(errs, err)
						continue
					}
					fmt.Fprintf(out, "requeued %s\n", id)
				}
				return errors.Join(errs...)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "retry every failed article")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show article counts per status and per topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), opts, func(_ config.Config, store *storage.SQLStore) error {
				byStatus, err := store.CountByStatus(cmd.Context())
				if err != nil {
					return err
				}
				byTopic, err := store.CountByTopic(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				statuses := []domain.Status{domain.StatusPending, domain.StatusInProgress, domain.StatusDone, domain.StatusError}
				rows := make([][]string, 0, len(statuses))
				for _, s := range statuses {
					rows = append(rows, []string{string(s), strconv.Itoa(byStatus[s])})
				}
				if err := renderTable(out, []string{"Status", "Articles"}, rows); err != nil {
					return err
				}

				fmt.Fprintln(out)
				topics := make([]string, 0, len(byTopic))
				for topic := range byTopic {
					topics = append(topics, topic)
				}
				slices.Sort(topics)
				rows = rows[:0]
				for _, topic := range topics {
					rows = append(rows, []string{topic, strconv.Itoa(byTopic[topic])})
				}
				return renderTable(out, []string{"Topic", "Articles"}, rows)
			})
		},
	}
}

func newPruneCmd(opts *rootOptions) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete articles published before the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), opts, func(cfg config.Config, store *storage.SQLStore) error {
				window := olderThan
				if window <= 0 {
					window = cfg.News.Retention
				}
				if window <= 0 {
					return errors.New("prune needs --older-than or news.retention")
				}

				n, err := store.Prune(cmd.Context(), time.Now().Add(-window))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pruned %d articles older than %s\n", n, window)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "age threshold (default news.retention)")
	return cmd
}

func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
	)
	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
