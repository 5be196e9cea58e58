// Package export renders stored campaign sets as JSON, YAML, or
// Markdown for hand-off and review.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/adlift/adsync/internal/logging"
	"github.com/adlift/adsync/internal/model"
)

// Format represents the output format for exported campaign sets.
type Format string

const (
	// FormatJSON exports the set as JSON.
	FormatJSON Format = "json"
	// FormatYAML exports the set as YAML, re-importable via 'adsync import'.
	FormatYAML Format = "yaml"
	// FormatMarkdown exports the set as a human-readable report.
	FormatMarkdown Format = "markdown"
)

// IsValid returns true if the format is recognized.
func (f Format) IsValid() bool {
	switch f {
	case FormatJSON, FormatYAML, FormatMarkdown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// ParseFormat parses a string into a Format.
func ParseFormat(s string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(s)))
	if !format.IsValid() {
		return "", fmt.Errorf("unsupported format %q (valid: json, yaml, markdown)", s)
	}
	return format, nil
}

// Options configures export behavior.
type Options struct {
	// Format specifies the output format.
	Format Format
	// Pretty enables pretty-printing for JSON/YAML.
	Pretty bool
	// IncludeSyncInfo includes platform ids, sync statuses, and
	// timestamps. Off produces a clean authoring file.
	IncludeSyncInfo bool
}

// DefaultOptions returns the default export options.
func DefaultOptions() Options {
	return Options{
		Format:          FormatYAML,
		Pretty:          true,
		IncludeSyncInfo: false,
	}
}

// Exporter renders campaign sets in a configured format.
type Exporter struct {
	opts Options
}

// New creates a new Exporter with the given options.
func New(opts Options) *Exporter {
	return &Exporter{opts: opts}
}

// Export writes the campaign set to w in the configured format.
func (e *Exporter) Export(set *model.CampaignSet, w io.Writer) error {
	defer logging.Timer("export")()

	logging.Debug("starting export",
		slog.String("format", string(e.opts.Format)),
		logging.Count(len(set.Campaigns)),
		logging.Platform(string(set.Platform)),
	)

	out := set
	if !e.opts.IncludeSyncInfo {
		out = stripSyncInfo(set)
	}

	var err error
	switch e.opts.Format {
	case FormatJSON:
		err = e.exportJSON(out, w)
	case FormatYAML:
		err = e.exportYAML(out, w)
	case FormatMarkdown:
		err = e.exportMarkdown(set, w)
	default:
		err = fmt.Errorf("unsupported format: %s", e.opts.Format)
	}

	if err != nil {
		logging.Error("export failed",
			slog.String("format", string(e.opts.Format)),
			logging.Err(err),
		)
		return err
	}

	logging.Info("export completed",
		slog.String("format", string(e.opts.Format)),
		logging.Count(len(set.Campaigns)),
	)
	return nil
}

// stripSyncInfo deep-copies the set with sync bookkeeping blanked, so
// the output can be re-imported as a fresh authoring file. Local ids
// survive; they keep parent references intact.
func stripSyncInfo(set *model.CampaignSet) *model.CampaignSet {
	out := *set
	out.Campaigns = make([]model.Campaign, len(set.Campaigns))
	for i := range set.Campaigns {
		c := set.Campaigns[i]
		c.SyncInfo = cleanInfo(c.SyncInfo)
		c.AdGroups = make([]model.AdGroup, len(set.Campaigns[i].AdGroups))
		for j := range set.Campaigns[i].AdGroups {
			g := set.Campaigns[i].AdGroups[j]
			g.SyncInfo = cleanInfo(g.SyncInfo)
			g.Ads = make([]model.Ad, len(set.Campaigns[i].AdGroups[j].Ads))
			for k := range set.Campaigns[i].AdGroups[j].Ads {
				a := set.Campaigns[i].AdGroups[j].Ads[k]
				a.SyncInfo = cleanInfo(a.SyncInfo)
				g.Ads[k] = a
			}
			if set.Campaigns[i].AdGroups[j].Keywords != nil {
				g.Keywords = make([]model.Keyword, len(set.Campaigns[i].AdGroups[j].Keywords))
				for k := range set.Campaigns[i].AdGroups[j].Keywords {
					kw := set.Campaigns[i].AdGroups[j].Keywords[k]
					kw.SyncInfo = cleanInfo(kw.SyncInfo)
					g.Keywords[k] = kw
				}
			}
			c.AdGroups[j] = g
		}
		out.Campaigns[i] = c
	}
	return &out
}

func cleanInfo(info model.SyncInfo) model.SyncInfo {
	return model.SyncInfo{
		LocalID:    info.LocalID,
		Status:     info.Status,
		SyncStatus: model.SyncPending,
		OrderIndex: info.OrderIndex,
	}
}

func (e *Exporter) exportJSON(set *model.CampaignSet, w io.Writer) error {
	encoder := json.NewEncoder(w)
	if e.opts.Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(set)
}

func (e *Exporter) exportYAML(set *model.CampaignSet, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	if e.opts.Pretty {
		encoder.SetIndent(2)
	}
	if err := encoder.Encode(set); err != nil {
		_ = encoder.Close()
		return err
	}
	return encoder.Close()
}

func (e *Exporter) exportMarkdown(set *model.CampaignSet, w io.Writer) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", set.Name))
	sb.WriteString(fmt.Sprintf("Platform: %s | Campaigns: %d\n\n", set.Platform, len(set.Campaigns)))

	for i := range set.Campaigns {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}
		sb.WriteString(formatMarkdownCampaign(&set.Campaigns[i]))
	}

	_, err := w.Write([]byte(sb.String()))
	return err
}

func formatMarkdownCampaign(c *model.Campaign) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## %s\n\n", c.Name))

	sb.WriteString("| Property | Value |\n")
	sb.WriteString("|----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Status | %s |\n", c.Status))
	sb.WriteString(fmt.Sprintf("| Sync | %s |\n", c.SyncStatus))
	if c.PlatformID != "" {
		sb.WriteString(fmt.Sprintf("| Platform ID | `%s` |\n", c.PlatformID))
	}
	if c.Objective != "" {
		sb.WriteString(fmt.Sprintf("| Objective | %s |\n", c.Objective))
	}
	if c.DailyBudgetMicros > 0 {
		sb.WriteString(fmt.Sprintf("| Daily budget | %.2f |\n", float64(c.DailyBudgetMicros)/1_000_000))
	}
	if c.StartDate != "" {
		sb.WriteString(fmt.Sprintf("| Start | %s |\n", c.StartDate))
	}
	if c.EndDate != "" {
		sb.WriteString(fmt.Sprintf("| End | %s |\n", c.EndDate))
	}
	sb.WriteString("\n")

	for i := range c.AdGroups {
		g := &c.AdGroups[i]
		sb.WriteString(fmt.Sprintf("### %s\n\n", g.Name))
		sb.WriteString(fmt.Sprintf("Status: %s | Ads: %d | Keywords: %d\n\n",
			g.Status, len(g.Ads), len(g.Keywords)))

		if len(g.Ads) > 0 {
			sb.WriteString("| Ad | Status | Final URL |\n")
			sb.WriteString("|----|--------|----------|\n")
			for j := range g.Ads {
				a := &g.Ads[j]
				sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", a.Headline, a.Status, a.FinalURL))
			}
			sb.WriteString("\n")
		}

		if len(g.Keywords) > 0 {
			sb.WriteString("| Keyword | Match | Status |\n")
			sb.WriteString("|---------|-------|--------|\n")
			for j := range g.Keywords {
				k := &g.Keywords[j]
				sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", k.Text, k.MatchType, k.Status))
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
