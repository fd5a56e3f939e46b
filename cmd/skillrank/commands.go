package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/injector"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/intent"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/skills"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/postgres"
)

func newRankCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rank <query>",
		Short: "Print BM25 scores for every skill",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := opts.load()
			if err != nil {
				return err
			}
			cfg := opts.rankingConfig(cmd)
			query := strings.Join(args, " ")
			scored := ranker.Rank(query, bundle.corpus.Names(), bundle.corpus, cfg)
			if cfg.MaxResults > 0 && len(scored) > cfg.MaxResults {
				scored = scored[:cfg.MaxResults]
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, scored)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tSKILL\tSCORE")
			for i, s := range scored {
				fmt.Fprintf(tw, "%d\t%s\t%.4f\n", i+1, s.Name, s.Score)
			}
			return tw.Flush()
		},
	}
}

type matchRow struct {
	Skill string `json:"skill"`
	intent.Result
}

func newMatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "match <message>",
		Short: "Print the intent and negation verdict for every skill",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := opts.load()
			if err != nil {
				return err
			}
			message := strings.Join(args, " ")
			cfg := intent.DefaultConfig()
			keywords := skills.KeywordMap(bundle.list)

			rows := make([]matchRow, 0, len(bundle.list))
			for _, name := range bundle.corpus.Names() {
				rows = append(rows, matchRow{Skill: name, Result: intent.Match(message, name, keywords[name], cfg)})
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, rows)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SKILL\tMATCH\tPATTERN\tNEGATED")
			for _, r := range rows {
				pattern := r.Pattern
				if pattern == "" {
					pattern = "-"
				}
				fmt.Fprintf(tw, "%s\t%t\t%s\t%t\n", r.Skill, r.Matches, pattern, r.HasNegation)
			}
			return tw.Flush()
		},
	}
}

func newSelectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "select <message>",
		Short: "Print the skills the engine would inject",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := opts.load()
			if err != nil {
				return err
			}
			selector := injector.NewSelector(bundle.corpus, skills.KeywordMap(bundle.list), opts.selectorConfig(cmd))
			outcome := selector.Select(strings.Join(args, " "))

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, outcome)
			}
			fmt.Fprintf(out, "mode: %s\n", outcome.Mode)
			if len(outcome.Selections) == 0 {
				fmt.Fprintln(out, "no skills selected")
			}
			for _, s := range outcome.Selections {
				if s.Pattern != "" {
					fmt.Fprintf(out, "  %s (%s)\n", s.Name, s.Pattern)
				} else {
					fmt.Fprintf(out, "  %s (%.4f)\n", s.Name, s.Score)
				}
			}
			if len(outcome.Negated) > 0 {
				fmt.Fprintf(out, "negated: %s\n", strings.Join(outcome.Negated, ", "))
			}
			return nil
		},
	}
}

func newSyncCmd(opts *options) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replace the skills table with the contents of --dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := opts.load()
			if err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Skills.LoadTimeout)
			defer cancel()
			db, err := postgres.New(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := skills.NewStore(db, cfg.Skills.LoadTimeout).Sync(ctx, bundle.list); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d skills (fingerprint %s)\n",
				len(bundle.list), bundle.corpus.Fingerprint())
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "configs/development.yaml", "path to config file")
	return cmd
}
