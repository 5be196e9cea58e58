package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/adlift/adsync/internal/backup"
	"github.com/adlift/adsync/internal/config"
	"github.com/adlift/adsync/internal/ui"
)

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Manage state database backups",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Snapshot the state database now",
				Action: func(_ context.Context, _ *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					path, err := statePath(cfg)
					if err != nil {
						return err
					}
					entry, err := backup.Create(path)
					if err != nil {
						return err
					}
					fmt.Println(ui.StatusSuccess(fmt.Sprintf("created backup %s (%d bytes)", entry.ID, entry.Size)))
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List stored backups, newest first",
				Action: func(_ context.Context, _ *cli.Command) error {
					entries, err := backup.List()
					if err != nil {
						return err
					}
					if len(entries) == 0 {
						fmt.Println("No backups stored")
						return nil
					}
					fmt.Printf("%-26s %-10s %s\n", "ID", "SIZE", "CREATED")
					for _, e := range entries {
						fmt.Printf("%-26s %-10d %s\n", e.ID, e.Size, e.CreatedAt.Format("2006-01-02 15:04:05"))
					}
					return nil
				},
			},
			{
				Name:      "restore",
				Usage:     "Restore a backup over the state database",
				ArgsUsage: "<backup-id>",
				Action: func(_ context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("restore requires exactly one backup id")
					}
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					path, err := statePath(cfg)
					if err != nil {
						return err
					}
					id := cmd.Args().Get(0)
					if err := backup.Restore(id, path); err != nil {
						return err
					}
					fmt.Println(ui.StatusSuccess(fmt.Sprintf("restored %s to %s", id, path)))
					return nil
				},
			},
			{
				Name:  "prune",
				Usage: "Delete old backups",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "keep",
						Usage: "How many recent backups to keep",
						Value: backup.DefaultKeep,
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					removed, err := backup.Prune(int(cmd.Int("keep")))
					if err != nil {
						return err
					}
					fmt.Printf("Removed %d backup(s)\n", removed)
					return nil
				},
			},
		},
	}
}
