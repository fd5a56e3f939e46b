package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/injector"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/skills"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/logger"
)

type options struct {
	dir        string
	k1         float64
	b          float64
	threshold  float64
	maxResults int
	heuristic  bool
	jsonOutput bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "skillrank",
		Short: "Inspect skill ranking and selection for a message",
		Long: `skillrank loads a skills directory and shows how the injection engine
sees a message.

Examples:
  skillrank rank "write typescript tests first" --dir skills
  skillrank match "don't use typescript-tdd" --dir skills
  skillrank select "analyse this dataframe" --k1 1.2 --max 5
  skillrank sync --dir skills`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logger.New(cmd.ErrOrStderr(), opts.logLevel, "text"))
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.dir, "dir", "skills", "skills directory")
	flags.Float64Var(&opts.k1, "k1", ranker.DefaultK1, "BM25 term-frequency saturation")
	flags.Float64Var(&opts.b, "b", ranker.DefaultB, "BM25 length normalisation")
	flags.Float64Var(&opts.threshold, "threshold", ranker.DefaultThreshold, "minimum score to keep")
	flags.IntVar(&opts.maxResults, "max", ranker.DefaultMaxResults, "maximum results; rank treats 0 as no limit")
	flags.BoolVar(&opts.heuristic, "heuristic", false, "select by name matching instead of BM25")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print JSON instead of text")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newRankCmd(opts),
		newMatchCmd(opts),
		newSelectCmd(opts),
		newSyncCmd(opts),
	)
	return root
}

// rankingConfig applies only the flags the user set, so defaults stay in
// one place.
func (o *options) rankingConfig(cmd *cobra.Command) ranker.Config {
	var ov ranker.Overrides
	flags := cmd.Flags()
	if flags.Changed("k1") {
		ov.K1 = &o.k1
	}
	if flags.Changed("b") {
		ov.B = &o.b
	}
	if flags.Changed("threshold") {
		ov.Threshold = &o.threshold
	}
	if flags.Changed("max") {
		ov.MaxResults = &o.maxResults
	}
	return ranker.DefaultConfig().Apply(ov)
}

func (o *options) selectorConfig(cmd *cobra.Command) injector.Config {
	cfg := injector.DefaultConfig()
	cfg.RelevanceEnabled = !o.heuristic
	cfg.Ranking = o.rankingConfig(cmd)
	return cfg
}

type corpusBundle struct {
	list   []skills.Skill
	corpus *index.Corpus
}

func (o *options) load() (corpusBundle, error) {
	list, result, err := skills.NewLoader(slog.Default()).LoadDir(o.dir)
	if err != nil {
		return corpusBundle{}, err
	}
	for _, le := range result.Errors {
		slog.Warn("skipped skill file", "file", le.File, "error", le.Message)
	}
	if len(list) == 0 {
		return corpusBundle{}, fmt.Errorf("no skills found in %s", o.dir)
	}
	return corpusBundle{list: list, corpus: index.Build(skills.Entries(list))}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
