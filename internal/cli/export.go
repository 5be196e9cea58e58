package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/adlift/adsync/internal/config"
	"github.com/adlift/adsync/internal/export"
	"github.com/adlift/adsync/internal/ui"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a stored campaign set as YAML, JSON, or Markdown",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "set",
				Usage: "Campaign set id (defaults to the only stored set)",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: yaml, json, markdown",
				Value: "yaml",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output file (defaults to stdout)",
			},
			&cli.BoolFlag{
				Name:  "sync-info",
				Usage: "Include platform ids and sync bookkeeping",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format, err := export.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			set, err := loadNamedSet(ctx, st, cmd.String("set"))
			if err != nil {
				return err
			}

			var w io.Writer = os.Stdout
			if out := cmd.String("out"); out != "" {
				f, err := os.Create(out) // #nosec G304 - user-supplied output path
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			exporter := export.New(export.Options{
				Format:          format,
				Pretty:          true,
				IncludeSyncInfo: cmd.Bool("sync-info"),
			})
			if err := exporter.Export(set, w); err != nil {
				return err
			}

			if out := cmd.String("out"); out != "" {
				fmt.Println(ui.StatusSuccess(fmt.Sprintf("exported %q to %s", set.Name, out)))
			}
			return nil
		},
	}
}
