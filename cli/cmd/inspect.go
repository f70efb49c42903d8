package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tweag/nixtract/cli/reader"
	"github.com/tweag/nixtract/cli/render"
)

// InspectCommand returns the inspect command. It loads a JSONL graph file
// produced by `nixtract extract` and either renders the whole graph as a
// derivation list or, with --attribute-path, a single derivation's detail
// view.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Inspect a derivation graph, or a single derivation within it",
		ArgsUsage: "<graph.jsonl>",
		Flags:     append(TUIReadOnlyFlags(), AttributePathFlag),
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
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

	attributePath := c.String("attribute-path")
	if attributePath == "" {
		if c.Bool("tui") {
			return cli.Exit("--tui requires --attribute-path for inspect", 1)
		}
		return r.Render(reader.ListDerivations(reader.ListDerivationsOptions{}))
	}

	resp, ok := reader.InspectDerivation(attributePath)
	if !ok {
		return cli.Exit(fmt.Sprintf("derivation not found: %s", attributePath), 1)
	}

	if c.Bool("tui") {
		return r.RenderTUI("inspect_derivation", resp)
	}
	return r.Render(resp)
}
