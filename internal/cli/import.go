package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/adlift/adsync/internal/config"
	"github.com/adlift/adsync/internal/model"
	"github.com/adlift/adsync/internal/platform"
	"github.com/adlift/adsync/internal/ui"
	"github.com/adlift/adsync/internal/validation"
)

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a YAML campaign set into the local store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Campaign set YAML file",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "skip-validation",
				Usage: "Store the set even when validation fails",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			set, err := loadSetFile(cmd.String("file"))
			if err != nil {
				return err
			}

			validator := validation.New(platform.NewDefaultsResolver())
			result := validator.ValidateSet(set, set.Platform)
			if !result.Valid() && !cmd.Bool("skip-validation") {
				printValidation(result)
				return fmt.Errorf("refusing to import an invalid set; fix it or pass --skip-validation")
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

			if err := st.SaveSet(ctx, set); err != nil {
				return err
			}

			fmt.Println(ui.StatusSuccess(fmt.Sprintf("imported %q (%s) as %s", set.Name, set.Platform, set.ID)))
			return nil
		},
	}
}

// loadSetFile parses a campaign set YAML file and assigns local ids to
// entities that do not carry one yet.
func loadSetFile(path string) (*model.CampaignSet, error) {
	data, err := os.ReadFile(path) // #nosec G304 - user-supplied import path
	if err != nil {
		return nil, fmt.Errorf("failed to read campaign set file: %w", err)
	}

	var set model.CampaignSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse campaign set file: %w", err)
	}

	if !set.Platform.Known() {
		return nil, fmt.Errorf("unknown platform %q in %s", set.Platform, path)
	}
	if set.ID == "" {
		set.ID = model.NewLocalID()
	}
	assignLocalIDs(&set)
	return &set, nil
}

// assignLocalIDs fills missing local ids and parent references so a
// hand-written file does not need to carry uuids.
func assignLocalIDs(set *model.CampaignSet) {
	for i := range set.Campaigns {
		c := &set.Campaigns[i]
		if c.LocalID == "" {
			c.LocalID = model.NewLocalID()
		}
		for j := range c.AdGroups {
			g := &c.AdGroups[j]
			if g.LocalID == "" {
				g.LocalID = model.NewLocalID()
			}
			if g.CampaignLocalID == "" {
				g.CampaignLocalID = c.LocalID
			}
			for k := range g.Ads {
				a := &g.Ads[k]
				if a.LocalID == "" {
					a.LocalID = model.NewLocalID()
				}
				if a.AdGroupLocalID == "" {
					a.AdGroupLocalID = g.LocalID
				}
			}
			for k := range g.Keywords {
				kw := &g.Keywords[k]
				if kw.LocalID == "" {
					kw.LocalID = model.NewLocalID()
				}
				if kw.AdGroupLocalID == "" {
					kw.AdGroupLocalID = g.LocalID
				}
			}
		}
	}
}
