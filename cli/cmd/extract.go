package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/tweag/nixtract/cli/config"
	"github.com/tweag/nixtract/eval"
	"github.com/tweag/nixtract/graph"
	"github.com/tweag/nixtract/iox"
	"github.com/tweag/nixtract/lode"
	"github.com/tweag/nixtract/log"
	"github.com/tweag/nixtract/metrics"
	"github.com/tweag/nixtract/types"
)

// Exit codes for extract, per the quiescence contract: 0 is a clean,
// residue-free stop; 1 is QuiescenceWithResidue (the queue was
// non-empty at drain time); 2 is a fatal spawn or sink failure that
// aborted the run before quiescence.
const (
	exitSuccess           = 0
	exitQuiescenceResidue = 1
	exitFatal             = 2
)

// ExtractCommand returns the extract command: the only command that
// talks to the Nix evaluator and mutates external state (the output
// sink). Every other command is read-only.
func ExtractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract the transitive dependency graph of a flake output",
		ArgsUsage: "[output-path|-]",
		Flags: []cli.Flag{
			ConfigFlag,
			&cli.StringFlag{Name: "target-flake-ref", Usage: "Flake reference to evaluate"},
			&cli.StringFlag{Name: "target-system", Usage: "Target platform triple"},
			&cli.StringFlag{Name: "target-attribute-path", Usage: "Root attribute path within the flake's packages (logged only; the finder is not restricted by it)"},
			&cli.IntFlag{Name: "n-workers", Usage: "Describer worker pool size", Value: 0},
			&cli.StringFlag{Name: "evaluator", Usage: "Path to the evaluator binary"},
			&cli.StringFlag{Name: "finder-expr", Usage: "Path to the finder expression file"},
			&cli.StringFlag{Name: "describer-expr", Usage: "Path to the describer expression file"},
			&cli.BoolFlag{Name: "offline", Usage: "Pass --offline through to the evaluator"},
			&cli.StringFlag{Name: "sink", Usage: "Output sink: local or s3"},
			&cli.StringFlag{Name: "s3-bucket", Usage: "S3 bucket (sink=s3)"},
			&cli.StringFlag{Name: "s3-prefix", Usage: "S3 key prefix (sink=s3)"},
			&cli.StringFlag{Name: "s3-region", Usage: "S3 region (sink=s3)"},
			&cli.StringFlag{Name: "s3-endpoint", Usage: "Custom S3 endpoint, for S3-compatible providers (sink=s3)"},
			&cli.BoolFlag{Name: "s3-path-style", Usage: "Force path-style S3 addressing (sink=s3)"},
		},
		Action: extractAction,
	}
}

func extractAction(c *cli.Context) error {
	cfg, err := resolveExtractConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitFatal)
	}

	outputPath := "-"
	if c.NArg() > 0 {
		outputPath = c.Args().First()
	}

	extractionID := types.NewExtractionID()
	sugar := log.NewLogger(cfg.TargetFlakeRef, string(extractionID)).Sugar()

	sink, err := buildSink(c.Context, cfg.Sink, outputPath, string(extractionID))
	if err != nil {
		return cli.Exit(fmt.Sprintf("build sink: %v", err), exitFatal)
	}
	defer iox.DiscardErr(sink.Close)

	mc := metrics.NewCollector(cfg.TargetFlakeRef, string(extractionID))

	driver := eval.NewRealDriver(eval.Config{
		EvaluatorPath:     cfg.Evaluator.Path,
		FinderExprPath:    cfg.Evaluator.FinderExprPath,
		DescriberExprPath: cfg.Evaluator.DescriberExprPath,
		TargetFlakeRef:    cfg.TargetFlakeRef,
		TargetSystem:      cfg.TargetSystem,
		Offline:           cfg.Offline,
	})

	coordinator := graph.NewCoordinator(driver, sink, graph.Config{NWorkers: cfg.NWorkers}, sugar.Raw(), mc, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sugar.Infof("starting extraction for %s (attribute path %q)", cfg.TargetFlakeRef, cfg.TargetAttributePath)
	result, err := coordinator.Run(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("extraction failed: %v", err), exitFatal)
	}

	if result.FatalErr != nil {
		return cli.Exit(fmt.Sprintf("extraction aborted: %v", result.FatalErr), exitFatal)
	}
	if result.QueueResidue {
		return cli.Exit("extraction stopped with queue residue", exitQuiescenceResidue)
	}

	snapshot := mc.Snapshot()
	sugar.Infof("extraction complete: %d derivations emitted, %d skipped, %d describer failures",
		snapshot.DerivationsEmitted, snapshot.DerivationsSkipped, snapshot.DescriberFailures)
	return cli.Exit("", exitSuccess)
}

// resolveExtractConfig merges a --config file (if given) with CLI flags,
// with flags always taking precedence over file defaults.
func resolveExtractConfig(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{}
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config %q: %w", path, err)
		}
		cfg = loaded
	}

	if v := c.String("target-flake-ref"); v != "" {
		cfg.TargetFlakeRef = v
	}
	if v := c.String("target-system"); v != "" {
		cfg.TargetSystem = v
	}
	if v := c.String("target-attribute-path"); v != "" {
		cfg.TargetAttributePath = v
	}
	if v := c.Int("n-workers"); v > 0 {
		cfg.NWorkers = v
	}
	if c.Bool("offline") {
		cfg.Offline = true
	}
	if v := c.String("evaluator"); v != "" {
		cfg.Evaluator.Path = v
	}
	if v := c.String("finder-expr"); v != "" {
		cfg.Evaluator.FinderExprPath = v
	}
	if v := c.String("describer-expr"); v != "" {
		cfg.Evaluator.DescriberExprPath = v
	}
	if v := c.String("sink"); v != "" {
		cfg.Sink.Type = v
	}
	if v := c.String("s3-bucket"); v != "" {
		cfg.Sink.S3.Bucket = v
	}
	if v := c.String("s3-prefix"); v != "" {
		cfg.Sink.S3.Prefix = v
	}
	if v := c.String("s3-region"); v != "" {
		cfg.Sink.S3.Region = v
	}
	if v := c.String("s3-endpoint"); v != "" {
		cfg.Sink.S3.Endpoint = v
	}
	if c.Bool("s3-path-style") {
		cfg.Sink.S3.UsePathStyle = true
	}

	if cfg.TargetFlakeRef == "" {
		return nil, fmt.Errorf("--target-flake-ref is required")
	}
	if cfg.Evaluator.Path == "" {
		return nil, fmt.Errorf("--evaluator is required")
	}
	return cfg, nil
}

// buildSink constructs the configured output sink. outputPath is the
// extract command's positional argument, used by the local sink; the s3
// sink ignores it and writes to the configured bucket/prefix instead.
func buildSink(ctx context.Context, sinkCfg config.SinkConfig, outputPath, extractionID string) (graph.Sink, error) {
	switch sinkCfg.Type {
	case "", "local":
		path := outputPath
		if sinkCfg.Path != "" {
			path = sinkCfg.Path
		}
		return graph.NewFileSink(path)
	case "s3":
		if err := sinkCfg.S3.Validate(); err != nil {
			return nil, err
		}
		client, err := lode.NewS3Client(ctx, lode.S3Config{
			Bucket:       sinkCfg.S3.Bucket,
			Prefix:       sinkCfg.S3.Prefix,
			Region:       sinkCfg.S3.Region,
			Endpoint:     sinkCfg.S3.Endpoint,
			UsePathStyle: sinkCfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return graph.NewS3Sink(client, graph.S3SinkConfig{
			Bucket:        sinkCfg.S3.Bucket,
			Prefix:        sinkCfg.S3.Prefix,
			ExtractionID:  extractionID,
			FlushInterval: sinkCfg.S3.FlushInterval.Duration,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported sink type: %s (must be local or s3)", sinkCfg.Type)
	}
}

