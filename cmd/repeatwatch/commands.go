package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/crimson-sun/repeatwatch/internal/config"
	"github.com/crimson-sun/repeatwatch/internal/connector"
	"github.com/crimson-sun/repeatwatch/internal/engine"
	"github.com/crimson-sun/repeatwatch/internal/engine/compactor"
	"github.com/crimson-sun/repeatwatch/internal/engine/vocab"
	"github.com/crimson-sun/repeatwatch/internal/logging"
	"github.com/crimson-sun/repeatwatch/internal/output"
	"github.com/crimson-sun/repeatwatch/internal/pipeline"
)

func cmdListen(cfg *config.Config) *cli.Command {
	var (
		provider string
		input    string
		encoding string
		follow   bool
	)
	return &cli.Command{
		Name:  "listen",
		Usage: "Classify utterances from the configured connector as they arrive",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "connector", Usage: "Connector provider (stdin, file)", Destination: &provider},
			&cli.StringFlag{Name: "input", Usage: "Transcript path for the file connector", Destination: &input},
			&cli.StringFlag{Name: "encoding", Usage: "Transcript encoding (utf-8, shift_jis, euc-jp)", Destination: &encoding},
			&cli.BoolFlag{Name: "follow", Usage: "Keep reading lines appended to the transcript", Destination: &follow},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cc := cfg.Connector
			if provider != "" {
				cc.Provider = provider
			}
			if input != "" {
				cc.Path = input
			}
			if encoding != "" {
				cc.Encoding = encoding
			}
			if c.IsSet("follow") {
				cc.Follow = follow
			}
			return runPipeline(ctx, c, *cfg, cc, func(ctx context.Context, p *pipeline.Pipeline, ccfg connector.ConnectorConfig) error {
				return p.Stream(ctx, ccfg)
			})
		},
	}
}

func cmdReplay(cfg *config.Config) *cli.Command {
	var (
		encoding string
		limit    int
		fresh    bool
	)
	return &cli.Command{
		Name:      "replay",
		Usage:     "Classify every line of one or more transcript files",
		ArgsUsage: "PATH|GLOB...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "encoding", Usage: "Transcript encoding (utf-8, shift_jis, euc-jp)", Destination: &encoding},
			&cli.IntFlag{Name: "limit", Usage: "Maximum number of lines per transcript (0 for all)", Destination: &limit},
			&cli.BoolFlag{Name: "fresh", Usage: "Replay against an empty in-memory history", Destination: &fresh},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() == 0 {
				return goerr.New("replay needs at least one transcript path or pattern")
			}
			paths, err := expandPaths(c.Args().Slice())
			if err != nil {
				return err
			}

			runCfg := *cfg
			if fresh {
				runCfg.Store.Backend = "memory"
			}
			cc := cfg.Connector
			cc.Provider = "file"
			cc.Follow = false
			if encoding != "" {
				cc.Encoding = encoding
			}
			params := connector.QueryParams{Limit: limit}
			return runPipeline(ctx, c, runCfg, cc, func(ctx context.Context, p *pipeline.Pipeline, base connector.ConnectorConfig) error {
				cfgs := make([]connector.ConnectorConfig, len(paths))
				for i, path := range paths {
					cfgs[i] = base
					cfgs[i].Path = path
				}
				return p.ReplayAll(ctx, cfgs, params)
			})
		},
	}
}

// expandPaths resolves each argument as a doublestar glob. Matches of one
// pattern are sorted; patterns keep their command-line order.
func expandPaths(patterns []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, goerr.Wrap(err, "expand transcript pattern", goerr.V("pattern", pattern))
		}
		if len(matches) == 0 {
			return nil, goerr.New("no transcript matches pattern", goerr.V("pattern", pattern))
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	return paths, nil
}

func runPipeline(ctx context.Context, c *cli.Command, cfg config.Config, cc config.ConnectorConfig,
	drive func(context.Context, *pipeline.Pipeline, connector.ConnectorConfig) error) error {
	logger := logging.ForComponent("cli")

	ctor, err := connector.Get(cc.Provider)
	if err != nil {
		return err
	}
	eng, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	out, err := newOutput(cfg.Output, c.Root().Writer)
	if err != nil {
		return err
	}
	p := pipeline.New(ctor(), eng, out)
	defer p.Close()

	logger.Info("starting", "connector", cc.Provider, "output", cfg.Output.Format, "store", cfg.Store.Backend)
	err = drive(ctx, p, connector.ConnectorConfig{
		Provider: cc.Provider,
		Path:     cc.Path,
		Encoding: cc.Encoding,
		Follow:   cc.Follow,
		Extra:    cc.Extra,
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func cmdAdd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Classify one utterance and print the record",
		ArgsUsage: "TEXT...",
		Action: func(ctx context.Context, c *cli.Command) error {
			text := strings.Join(c.Args().Slice(), " ")
			eng, err := newEngine(ctx, *cfg)
			if err != nil {
				return err
			}
			defer eng.Close()

			rec, outcome := eng.AddUtterance(ctx, text)
			if outcome != engine.Accepted {
				return printJSON(c.Root().Writer, map[string]string{"outcome": outcome.String()})
			}
			v, err := compactor.ParseVerbosity(cfg.Output.Verbosity)
			if err != nil {
				return err
			}
			return printJSON(c.Root().Writer, output.FormatRecord(rec, v))
		},
	}
}

func cmdHistory(cfg *config.Config) *cli.Command {
	var limit int
	return &cli.Command{
		Name:  "history",
		Usage: "Print the records inside the retention window, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Usage: "Maximum number of records (0 for all)", Destination: &limit},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			eng, err := newEngine(ctx, *cfg)
			if err != nil {
				return err
			}
			defer eng.Close()

			records := eng.Records()
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}
			return printJSON(c.Root().Writer, records)
		},
	}
}

func cmdStats(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print repetition statistics for the retention window",
		Action: func(ctx context.Context, c *cli.Command) error {
			eng, err := newEngine(ctx, *cfg)
			if err != nil {
				return err
			}
			defer eng.Close()
			return printJSON(c.Root().Writer, eng.Stats())
		},
	}
}

func cmdClear(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Delete the conversation history",
		Action: func(ctx context.Context, c *cli.Command) error {
			eng, err := newEngine(ctx, *cfg)
			if err != nil {
				return err
			}
			defer eng.Close()
			return eng.ClearHistory(ctx)
		},
	}
}

type scoreReport struct {
	A         string  `json:"a"`
	B         string  `json:"b"`
	Score     float64 `json:"score"`
	MatchType string  `json:"matchType"`
	Path      string  `json:"path"`
	TFIDF     float64 `json:"tfidf"`
	Semantic  float64 `json:"semantic"`
}

func cmdScore(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "score",
		Usage:     "Print the similarity breakdown of two utterances",
		ArgsUsage: "A B",
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() != 2 {
				return goerr.New("score takes exactly two utterances")
			}
			a, b := c.Args().Get(0), c.Args().Get(1)
			sc, err := newScorer(*cfg)
			if err != nil {
				return err
			}
			bd := sc.Compare(a, b, vocab.Build([]string{a, b}, sc.Tokenizer()))
			return printJSON(c.Root().Writer, scoreReport{
				A:         a,
				B:         b,
				Score:     bd.Score,
				MatchType: string(sc.Tag(bd.Score)),
				Path:      string(bd.Path),
				TFIDF:     bd.TFIDF,
				Semantic:  bd.Semantic,
			})
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return goerr.Wrap(err, "write output")
	}
	return nil
}
