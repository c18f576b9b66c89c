package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/courseguide/pkg/catalog"
	"github.com/m-mizutani/courseguide/pkg/prompt"
	"github.com/urfave/cli/v3"
)

func catalogCommand() *cli.Command {
	var (
		cfg        config
		showPrompt bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "prompt",
			Aliases:     []string{"p"},
			Usage:       "Print the full system instruction instead of the catalog only",
			Destination: &showPrompt,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "catalog",
		Usage: "Print the rendered course catalog",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, os.Stderr)

			text := catalog.LoadText(ctx, cfg.catalogPath)
			if showPrompt {
				template, err := prompt.LoadTemplate(cfg.templatePath)
				if err != nil {
					return err
				}
				text = prompt.Build(template, text)
			}

			fmt.Fprint(c.Root().Writer, text)
			return nil
		},
	}
}
