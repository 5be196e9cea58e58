package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/adlift/adsync/internal/config"
	"github.com/adlift/adsync/internal/model"
	"github.com/adlift/adsync/internal/sync"
	"github.com/adlift/adsync/internal/ui"
	"github.com/adlift/adsync/internal/ui/tui"
)

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve sync conflicts interactively",
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

			conflicted := conflictedCampaigns(set)
			if len(conflicted) == 0 {
				fmt.Println(ui.StatusSuccess("no conflicts to resolve"))
				return nil
			}

			result, err := tui.RunConflictList(conflicted)
			if err != nil {
				return err
			}
			if result.Action != tui.ConflictActionResolve {
				fmt.Println(ui.StatusSkipped("no changes made"))
				return nil
			}

			now := time.Now()
			resolved := 0
			for _, c := range conflicted {
				choice, ok := result.Choices[c.LocalID]
				if !ok {
					continue
				}
				sync.ResolveConflict(c, choice == tui.ChoiceKeepLocal, now)
				resolved++
			}

			if err := st.SaveSet(ctx, set); err != nil {
				return fmt.Errorf("failed to persist resolutions: %w", err)
			}
			fmt.Println(ui.StatusSuccess(fmt.Sprintf("resolved %d conflict(s)", resolved)))
			return nil
		},
	}
}

func conflictedCampaigns(set *model.CampaignSet) []*model.Campaign {
	var out []*model.Campaign
	for i := range set.Campaigns {
		if set.Campaigns[i].SyncInfo.Conflict != nil {
			out = append(out, &set.Campaigns[i])
		}
	}
	return out
}
