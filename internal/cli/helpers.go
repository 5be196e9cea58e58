package cli

import (
	"context"
	"fmt"

	"github.com/adlift/adsync/internal/adapter"
	"github.com/adlift/adsync/internal/adapter/googleads"
	"github.com/adlift/adsync/internal/adapter/meta"
	"github.com/adlift/adsync/internal/breaker"
	"github.com/adlift/adsync/internal/config"
	"github.com/adlift/adsync/internal/model"
	"github.com/adlift/adsync/internal/platform"
	"github.com/adlift/adsync/internal/store"
	"github.com/adlift/adsync/internal/sync"
	"github.com/adlift/adsync/internal/validation"
)

// statePath resolves the state database location from config.
func statePath(cfg *config.Config) (string, error) {
	if cfg.Store.Path != "" {
		return cfg.Store.Path, nil
	}
	return store.DefaultPath()
}

// openStore opens the SQLite state database at the configured path.
func openStore(cfg *config.Config) (*store.Store, error) {
	path, err := statePath(cfg)
	if err != nil {
		return nil, err
	}
	return store.Open(path)
}

// buildAdapter constructs the platform adapter from configured credentials.
func buildAdapter(cfg *config.Config, p model.Platform) (adapter.Adapter, error) {
	pc := cfg.Platform(string(p))
	if pc.CredentialsFile == "" {
		return nil, fmt.Errorf("no credentials configured for platform %s", p)
	}

	switch p {
	case model.GoogleAds:
		creds, err := googleads.LoadCredentials(pc.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return googleads.New(creds, pc.Endpoint, nil), nil
	case model.MetaAds:
		creds, err := meta.LoadCredentials(pc.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return meta.New(creds, pc.Endpoint, nil), nil
	default:
		return nil, fmt.Errorf("unsupported platform %q", p)
	}
}

// buildEngine wires an adapter into a sync engine with the configured
// breaker settings.
func buildEngine(cfg *config.Config, ad adapter.Adapter) *sync.Engine {
	validator := validation.New(platform.NewDefaultsResolver())
	return sync.New(ad, breakerRegistry(cfg), validator)
}

func breakerRegistry(cfg *config.Config) *breaker.Registry {
	return breaker.NewRegistry(cfg.BreakerSettings())
}

// loadNamedSet loads a campaign set by id, or the only stored set when
// id is empty.
func loadNamedSet(ctx context.Context, st *store.Store, id string) (*model.CampaignSet, error) {
	if id == "" {
		sets, err := st.ListSets(ctx)
		if err != nil {
			return nil, err
		}
		switch len(sets) {
		case 0:
			return nil, fmt.Errorf("no campaign sets stored; run 'adsync import' first")
		case 1:
			id = sets[0].ID
		default:
			return nil, fmt.Errorf("%d campaign sets stored; pick one with --set", len(sets))
		}
	}

	set, err := st.LoadSet(ctx, id)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, fmt.Errorf("campaign set %q not found", id)
	}
	return set, nil
}
