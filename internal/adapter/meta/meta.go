// Package meta implements the adapter contract for the Meta Marketing API.
// Meta-specific shapes live here: flat numeric ids, cent-denominated budgets
// (converted from the local micro-unit encoding), and the ACTIVE/PAUSED/
// ARCHIVED status vocabulary. Creatives are mutable on this platform.
package meta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/adlift/adsync/internal/adapter"
	"github.com/adlift/adsync/internal/model"
)

const apiVersion = "v19.0"

// Credentials holds the already-acquired tokens this adapter consumes.
type Credentials struct {
	AccountID   string `toml:"account_id"`
	AccessToken string `toml:"access_token"`
}

// LoadCredentials reads a TOML credentials file.
func LoadCredentials(path string) (Credentials, error) {
	var creds Credentials
	if _, err := toml.DecodeFile(path, &creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to load meta credentials: %w", err)
	}
	if creds.AccountID == "" {
		return Credentials{}, fmt.Errorf("meta credentials missing account_id")
	}
	return creds, nil
}

// Adapter talks to the Meta Marketing API for one ad account.
type Adapter struct {
	baseURL string
	creds   Credentials
	client  *http.Client
}

// New creates an Adapter. baseURL overrides the production endpoint for
// tests; empty means the real Graph API.
func New(creds Credentials, baseURL string, client *http.Client) *Adapter {
	if baseURL == "" {
		baseURL = "https://graph.facebook.com"
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  client,
	}
}

// Platform implements adapter.Adapter.
func (a *Adapter) Platform() model.Platform { return model.MetaAds }

// microsToCents converts the local micro-unit encoding into Meta's cents.
func microsToCents(micros int64) int64 {
	return micros / 10_000
}

func statusFor(s model.Status) string {
	switch s {
	case model.StatusPaused:
		return "PAUSED"
	case model.StatusCompleted:
		return "ARCHIVED"
	default:
		return "ACTIVE"
	}
}

type idResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Graph API error code for application-level rate limiting.
const codeRateLimit = 17

// post sends a JSON request and maps the response into an adapter Result.
// wantID is the platform id to echo for operations that do not mint one.
func (a *Adapter) post(ctx context.Context, path string, payload map[string]any, wantID string) adapter.Result {
	body, err := json.Marshal(payload)
	if err != nil {
		return adapter.Fail(adapter.CodeInvalidArgument, false, "failed to encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return adapter.Fail(adapter.CodeInvalidArgument, false, "failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.creds.AccessToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return adapter.Fail(adapter.CodeRemoteInternal, true, "request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return adapter.Fail(adapter.CodeRemoteInternal, true, "failed to read response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return a.classifyFailure(resp.StatusCode, buf.Bytes())
	}

	var parsed idResponse
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		return adapter.Fail(adapter.CodeRemoteInternal, true, "malformed response: %v", err)
	}
	if parsed.ID != "" {
		return adapter.OK(parsed.ID)
	}
	return adapter.OK(wantID)
}

func (a *Adapter) classifyFailure(status int, body []byte) adapter.Result {
	var parsed graphError
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		msg = parsed.Error.Message
		if parsed.Error.Code == codeRateLimit {
			return adapter.FailAfter(adapter.CodeRateLimited, 0, "rate limited by Meta: %s", msg)
		}
	}

	switch {
	case status == http.StatusTooManyRequests:
		return adapter.FailAfter(adapter.CodeRateLimited, 0, "rate limited by Meta: %s", msg)
	case status == http.StatusNotFound:
		return adapter.Fail(adapter.CodeNotFound, false, "entity not found")
	case status >= 500:
		return adapter.Fail(adapter.CodeRemoteInternal, true, "server error %d: %s", status, msg)
	default:
		return adapter.Fail(adapter.CodeInvalidArgument, false, "rejected with %d: %s", status, msg)
	}
}

func (a *Adapter) accountPath(collection string) string {
	return fmt.Sprintf("/%s/act_%s/%s", apiVersion, a.creds.AccountID, collection)
}

func (a *Adapter) objectPath(id string) string {
	return fmt.Sprintf("/%s/%s", apiVersion, id)
}

// CreateCampaign implements adapter.Adapter.
func (a *Adapter) CreateCampaign(ctx context.Context, c *model.Campaign) adapter.Result {
	payload := map[string]any{
		"name":         c.Name,
		"status":       statusFor(c.Status),
		"daily_budget": microsToCents(c.DailyBudgetMicros),
	}
	if c.Objective != "" {
		payload["objective"] = strings.ToUpper(c.Objective)
	}
	if c.StartDate != "" {
		payload["start_time"] = c.StartDate
	}
	if c.EndDate != "" {
		payload["stop_time"] = c.EndDate
	}
	return a.post(ctx, a.accountPath("campaigns"), payload, "")
}

// UpdateCampaign implements adapter.Adapter.
func (a *Adapter) UpdateCampaign(ctx context.Context, c *model.Campaign, platformID string) adapter.Result {
	payload := map[string]any{
		"name":         c.Name,
		"status":       statusFor(c.Status),
		"daily_budget": microsToCents(c.DailyBudgetMicros),
	}
	return a.post(ctx, a.objectPath(platformID), payload, platformID)
}

// DeleteCampaign implements adapter.Adapter. The Graph API deletes by setting
// the DELETED status.
func (a *Adapter) DeleteCampaign(ctx context.Context, platformID string) adapter.Result {
	return a.post(ctx, a.objectPath(platformID), map[string]any{"status": "DELETED"}, platformID)
}

// PauseCampaign implements adapter.Adapter.
func (a *Adapter) PauseCampaign(ctx context.Context, platformID string) adapter.Result {
	return a.post(ctx, a.objectPath(platformID), map[string]any{"status": "PAUSED"}, platformID)
}

// ResumeCampaign implements adapter.Adapter.
func (a *Adapter) ResumeCampaign(ctx context.Context, platformID string) adapter.Result {
	return a.post(ctx, a.objectPath(platformID), map[string]any{"status": "ACTIVE"}, platformID)
}

// CreateAdGroup implements adapter.Adapter. Ad groups map to Meta ad sets.
func (a *Adapter) CreateAdGroup(ctx context.Context, g *model.AdGroup, campaignPlatformID string) adapter.Result {
	return a.post(ctx, a.accountPath("adsets"), map[string]any{
		"name":        g.Name,
		"status":      statusFor(g.Status),
		"campaign_id": campaignPlatformID,
		"bid_amount":  microsToCents(g.CPCBidMicros),
	}, "")
}

// UpdateAdGroup implements adapter.Adapter.
func (a *Adapter) UpdateAdGroup(ctx context.Context, g *model.AdGroup, platformID string) adapter.Result {
	return a.post(ctx, a.objectPath(platformID), map[string]any{
		"name":       g.Name,
		"status":     statusFor(g.Status),
		"bid_amount": microsToCents(g.CPCBidMicros),
	}, platformID)
}

// DeleteAdGroup implements adapter.Adapter.
func (a *Adapter) DeleteAdGroup(ctx context.Context, platformID string) adapter.Result {
	return a.post(ctx, a.objectPath(platformID), map[string]any{"status": "DELETED"}, platformID)
}

// PauseAdGroup implements adapter.Adapter.
func (a *Adapter) PauseAdGroup(ctx context.Context, platformID string) adapter.Result {
	return a.post(ctx, a.objectPath(platformID), map[string]any{"status": "PAUSED"}, platformID)
}

// ResumeAdGroup implements adapter.Adapter.
func (a *Adapter) ResumeAdGroup(ctx context.Context, platformID string) adapter.Result {
	return a.post(ctx, a.objectPath(platformID), map[string]any{"status": "ACTIVE"}, platformID)
}

// CreateAd implements adapter.Adapter.
func (a *Adapter) CreateAd(ctx context.Context, ad *model.Ad, adGroupPlatformID string) adapter.Result {
	return a.post(ctx, a.accountPath("ads"), map[string]any{
		"name":     ad.Headline,
		"status":   statusFor(ad.Status),
		"adset_id": adGroupPlatformID,
		"creative": map[string]any{
			"title":    ad.Headline,
			"body":     ad.Description,
			"link_url": ad.FinalURL,
		},
	}, "")
}

// UpdateAd implements adapter.Adapter. Creatives are mutable on Meta.
func (a *Adapter) UpdateAd(ctx context.Context, ad *model.Ad, platformID string) adapter.Result {
	return a.post(ctx, a.objectPath(platformID), map[string]any{
		"name":   ad.Headline,
		"status": statusFor(ad.Status),
		"creative": map[string]any{
			"title":    ad.Headline,
			"body":     ad.Description,
			"link_url": ad.FinalURL,
		},
	}, platformID)
}

// DeleteAd implements adapter.Adapter.
func (a *Adapter) DeleteAd(ctx context.Context, platformID string) adapter.Result {
	return a.post(ctx, a.objectPath(platformID), map[string]any{"status": "DELETED"}, platformID)
}

// CreateKeyword implements adapter.Adapter. Meta has no keyword objects;
// keywords map to flexible targeting specs attached to the ad set.
func (a *Adapter) CreateKeyword(ctx context.Context, k *model.Keyword, adGroupPlatformID string) adapter.Result {
	return a.post(ctx, a.accountPath("targeting"), map[string]any{
		"adset_id":   adGroupPlatformID,
		"keyword":    k.Text,
		"match_type": k.MatchType,
		"status":     statusFor(k.Status),
	}, "")
}

// UpdateKeyword implements adapter.Adapter.
func (a *Adapter) UpdateKeyword(ctx context.Context, k *model.Keyword, platformID string) adapter.Result {
	return a.post(ctx, a.objectPath(platformID), map[string]any{
		"keyword":    k.Text,
		"match_type": k.MatchType,
		"status":     statusFor(k.Status),
	}, platformID)
}

// DeleteKeyword implements adapter.Adapter.
func (a *Adapter) DeleteKeyword(ctx context.Context, platformID string) adapter.Result {
	return a.post(ctx, a.objectPath(platformID), map[string]any{"status": "DELETED"}, platformID)
}

type campaignView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// FetchCampaign implements adapter.Adapter.
func (a *Adapter) FetchCampaign(ctx context.Context, platformID string) (*model.RemoteEntity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+a.objectPath(platformID), nil)
	if err != nil {
		return nil, fmt.Errorf("building fetch request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.creds.AccessToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching campaign %s: %w", platformID, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching campaign %s: status %d", platformID, resp.StatusCode)
	}

	var view campaignView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, fmt.Errorf("malformed campaign response: %w", err)
	}

	return &model.RemoteEntity{
		PlatformID: platformID,
		Type:       model.EntityCampaign,
		Fields: map[string]string{
			"name":   view.Name,
			"status": view.Status,
		},
	}, nil
}
