// Package cli provides command definitions for adsync.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/adlift/adsync/internal/backup"
	"github.com/adlift/adsync/internal/config"
	"github.com/adlift/adsync/internal/model"
	"github.com/adlift/adsync/internal/platform"
	"github.com/adlift/adsync/internal/progress"
	"github.com/adlift/adsync/internal/retry"
	"github.com/adlift/adsync/internal/sync"
	"github.com/adlift/adsync/internal/ui"
	"github.com/adlift/adsync/internal/validation"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Display current configuration",
		Action: func(_ context.Context, _ *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			fmt.Printf("Config file: %s\n", config.FilePath())
			fmt.Printf("State database: %s\n", cfg.Store.Path)
			fmt.Println("Platforms:")
			for _, p := range model.KnownPlatforms() {
				pc := cfg.Platform(string(p))
				endpoint := pc.Endpoint
				if endpoint == "" {
					endpoint = "(production)"
				}
				fmt.Printf("  %-10s endpoint=%s credentials=%s\n", p, endpoint, pc.CredentialsFile)
			}
			fmt.Printf("Breaker: threshold=%d cooldown=%s\n",
				cfg.Breaker.FailureThreshold, cfg.Breaker.Cooldown)
			fmt.Printf("Retry: max_attempts=%d interval=%s\n",
				cfg.Retry.MaxAttempts, cfg.Retry.Interval)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored campaign sets",
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			sets, err := st.ListSets(ctx)
			if err != nil {
				return err
			}
			if len(sets) == 0 {
				fmt.Println("No campaign sets stored")
				return nil
			}

			fmt.Printf("%-38s %-24s %-10s %s\n", "ID", "NAME", "PLATFORM", "UPDATED")
			for _, s := range sets {
				fmt.Printf("%-38s %-24s %-10s %s\n",
					s.ID, s.Name, s.Platform, s.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate a campaign set against its target platform",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "set",
				Usage: "Campaign set id (defaults to the only stored set)",
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Validate a YAML file instead of a stored set",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			var set *model.CampaignSet
			if file := cmd.String("file"); file != "" {
				set, err = loadSetFile(file)
				if err != nil {
					return err
				}
			} else {
				st, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer st.Close()
				set, err = loadNamedSet(ctx, st, cmd.String("set"))
				if err != nil {
					return err
				}
			}

			validator := validation.New(platform.NewDefaultsResolver())
			result := validator.ValidateSet(set, set.Platform)
			printValidation(result)
			if !result.Valid() {
				return fmt.Errorf("validation failed with %d error(s)", result.Summary.Total)
			}
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Push local campaign set changes to the target platform",
		Description: `Diff the campaign set against the last pushed state and apply
   the resulting operations in dependency order.

   Examples:
     adsync sync
     adsync sync --dry-run --set 7f3a...
     adsync sync --transaction`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "set",
				Usage: "Campaign set id (defaults to the only stored set)",
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "Preview operations without calling the platform",
			},
			&cli.BoolFlag{
				Name:  "transaction",
				Usage: "Roll back the whole batch when any operation fails",
			},
			&cli.BoolFlag{
				Name:  "track-deletions",
				Usage: "Delete platform entities that no longer exist locally",
			},
			&cli.BoolFlag{
				Name:  "skip-backup",
				Usage: "Skip the automatic state backup before syncing",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if !cmd.Bool("dry-run") && !cmd.Bool("skip-backup") {
				dbPath, err := statePath(cfg)
				if err != nil {
					return err
				}
				if _, err := os.Stat(dbPath); err == nil {
					if _, err := backup.Create(dbPath); err != nil {
						return fmt.Errorf("failed to back up state database: %w", err)
					}
				}
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
			remote, err := st.Snapshot(ctx, set.ID)
			if err != nil {
				return err
			}

			ad, err := buildAdapter(cfg, set.Platform)
			if err != nil {
				return err
			}
			engine := buildEngine(cfg, ad)

			opts := sync.Options{
				DryRun:         cmd.Bool("dry-run"),
				Transaction:    cmd.Bool("transaction") || cfg.Sync.Transaction,
				TrackDeletions: cmd.Bool("track-deletions") || cfg.Sync.TrackDeletions,
			}

			var bar *progress.Bar
			if !opts.DryRun {
				opts.Progress = func(done, total int) {
					if bar == nil {
						bar = progress.ForOperations(total)
					}
					_ = bar.Set(done)
				}
			}

			result, err := engine.Sync(ctx, set, remote, opts)
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return err
			}
			if result.Validation != nil && !result.Validation.Valid() {
				printValidation(result.Validation)
				return fmt.Errorf("validation failed with %d error(s)", result.Validation.Summary.Total)
			}

			if !opts.DryRun {
				if err := st.SaveSet(ctx, set); err != nil {
					return fmt.Errorf("failed to persist sync state: %w", err)
				}
			}

			printSyncResult(result, opts.DryRun)
			if !result.Success {
				return fmt.Errorf("%d campaign(s) failed to sync", result.FailedCampaigns)
			}
			return nil
		},
	}
}

func pullCommand() *cli.Command {
	return &cli.Command{
		Name:  "pull",
		Usage: "Pull platform-side changes back into the local campaign set",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "set",
				Usage: "Campaign set id (defaults to the only stored set)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
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

			ad, err := buildAdapter(cfg, set.Platform)
			if err != nil {
				return err
			}
			engine := buildEngine(cfg, ad)

			result, err := engine.ReverseSync(ctx, set)
			if err != nil {
				return err
			}

			if err := st.SaveSet(ctx, set); err != nil {
				return fmt.Errorf("failed to persist pulled state: %w", err)
			}

			fmt.Println(ui.Bold("Pull result:"))
			fmt.Printf("  %s\n", ui.StatusSuccess(fmt.Sprintf("%d unchanged, %d updated", result.Unchanged, result.Updated)))
			if result.Conflicts > 0 {
				fmt.Printf("  %s\n", ui.StatusConflict(fmt.Sprintf("%d conflict(s); run 'adsync resolve'", result.Conflicts)))
			}
			if result.Deleted > 0 {
				fmt.Printf("  %s\n", ui.StatusWarning(fmt.Sprintf("%d deleted on platform", result.Deleted)))
			}
			if result.Skipped > 0 {
				fmt.Printf("  %s\n", ui.StatusSkipped(fmt.Sprintf("%d skipped", result.Skipped)))
			}
			for _, e := range result.Errors {
				fmt.Printf("  %s\n", ui.StatusError(e.Error()))
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("pull finished with %d error(s)", len(result.Errors))
			}
			return nil
		},
	}
}

func retryCommand() *cli.Command {
	return &cli.Command{
		Name:  "retry",
		Usage: "Requeue failed entities for the next sync",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Keep sweeping on the configured interval until interrupted",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			coordinator := retry.New(st, st, breakerRegistry(cfg), retry.Options{
				MaxAttempts: cfg.Retry.MaxAttempts,
				Interval:    cfg.Retry.Interval,
			})

			if cmd.Bool("watch") {
				fmt.Printf("Sweeping every %s, ctrl+c to stop\n", cfg.Retry.Interval)
				return coordinator.Run(ctx)
			}

			result, err := coordinator.Sweep(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Processed %d failed entit%s: %d requeued, %d skipped, %d permanent\n",
				result.Processed, plural(result.Processed, "y", "ies"),
				result.Requeued, result.Skipped, result.PermanentFailures)
			for _, e := range result.Errors {
				fmt.Printf("  %s\n", ui.StatusError(e.Error()))
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("sweep finished with %d error(s)", len(result.Errors))
			}
			return nil
		},
	}
}

func printValidation(r *validation.Result) {
	if r.Valid() {
		fmt.Println(ui.StatusSuccess("campaign set is valid"))
		return
	}
	fmt.Println(ui.Bold(fmt.Sprintf("%d validation error(s):", r.Summary.Total)))
	for i := range r.Errors {
		e := &r.Errors[i]
		fmt.Printf("  %s\n", ui.StatusError(e.Error()))
	}
}

func printSyncResult(r *sync.SyncResult, dryRun bool) {
	if r.Exec == nil {
		fmt.Println(ui.StatusSuccess("nothing to sync"))
		return
	}

	if dryRun {
		fmt.Println(ui.Bold(fmt.Sprintf("Dry run: %d operation(s) planned", len(r.Exec.Executed))))
		for _, op := range r.Exec.Executed {
			fmt.Printf("  %s %s\n", ui.Dim(ui.SymbolPending), op.Operation.String())
		}
		return
	}

	for _, op := range r.Exec.Executed {
		switch op.Outcome {
		case sync.OutcomeSuccess:
			fmt.Printf("  %s\n", ui.StatusSuccess(op.Operation.String()))
		case sync.OutcomeFailed:
			fmt.Printf("  %s\n", ui.StatusError(fmt.Sprintf("%s: %s", op.Operation.String(), op.Err.Message)))
		case sync.OutcomeSkipped:
			fmt.Printf("  %s\n", ui.StatusSkipped(op.Operation.String()+" (breaker open)"))
		case sync.OutcomeCompensated:
			fmt.Printf("  %s\n", ui.StatusRolledBack(op.Operation.String()+" (rolled back)"))
		}
	}

	if r.Exec.RolledBack {
		fmt.Println(ui.StatusRolledBack("batch rolled back"))
	}
	fmt.Printf("%d campaign(s) synced, %d failed\n",
		r.SyncedCampaigns, r.FailedCampaigns)
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}
