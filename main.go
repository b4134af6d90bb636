package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"pdfharvest/internal/pipeline"
	"pdfharvest/pkg/help"
)

func main() {
	app := &cli.App{
		Name:  "pdfharvest",
		Usage: "Discover, download, and enrich PDF documents into a searchable metadata store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "Path to the YAML configuration file",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only log errors",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "harvest",
				Usage: "Run the full pipeline: discover, download, extract, enrich, persist",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Override the configured worker count",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Override the configured candidate cap",
					},
				},
				Action: pipeline.HarvestAction,
			},
			{
				Name:  "discover",
				Usage: "Walk the catalog and print candidates without downloading",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Override the configured candidate cap",
					},
				},
				Action: pipeline.DiscoverAction,
			},
			{
				Name:   "status",
				Usage:  "Print stored record and audit log counts",
				Action: pipeline.StatusAction,
			},
			{
				Name:  "quickstart",
				Usage: "Print usage examples and operational notes",
				Action: func(c *cli.Context) error {
					fmt.Print(help.QuickstartYAML)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
