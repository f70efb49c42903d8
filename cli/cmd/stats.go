package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tweag/nixtract/cli/reader"
	"github.com/tweag/nixtract/cli/render"
)

// StatsCommand returns the stats command. It loads a JSONL graph file
// produced by `nixtract extract` and renders aggregate counts over it.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Show aggregate statistics over a derivation graph",
		ArgsUsage: "<graph.jsonl>",
		Flags:     TUIReadOnlyFlags(),
		Action:    statsAction,
	}
}

func statsAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("graph file path required", 1)
	}
	graphPath := c.Args().First()

	g, err := reader.LoadJSONL(graphPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("load graph: %v", err), 1)
	}
	reader.SetReader(g)

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	stats := reader.Stats()

	if c.Bool("tui") {
		return r.RenderTUI("stats_graph", stats)
	}
	return r.Render(stats)
}
