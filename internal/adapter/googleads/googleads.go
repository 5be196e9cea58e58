// Package googleads implements the adapter contract for the Google Ads API.
// All Google-specific request shapes live here: resource names like
// customers/{cid}/campaigns/{id}, micro-unit budgets, and the ENABLED/PAUSED/
// REMOVED status vocabulary. Ads are immutable on this platform; updates
// return a deterministic delete-and-recreate failure.
package googleads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/adlift/adsync/internal/adapter"
	"github.com/adlift/adsync/internal/logging"
	"github.com/adlift/adsync/internal/model"
)

const apiVersion = "v16"

// Credentials holds the already-acquired tokens this adapter consumes.
// Token acquisition and refresh happen elsewhere.
type Credentials struct {
	DeveloperToken string `toml:"developer_token"`
	CustomerID     string `toml:"customer_id"`
	AccessToken    string `toml:"access_token"`
}

// LoadCredentials reads a TOML credentials file.
func LoadCredentials(path string) (Credentials, error) {
	var creds Credentials
	if _, err := toml.DecodeFile(path, &creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to load googleads credentials: %w", err)
	}
	if creds.CustomerID == "" {
		return Credentials{}, fmt.Errorf("googleads credentials missing customer_id")
	}
	return creds, nil
}

// Adapter talks to the Google Ads API for one customer account.
type Adapter struct {
	baseURL string
	creds   Credentials
	client  *http.Client
}

// New creates an Adapter. baseURL overrides the production endpoint, used by
// tests and sandboxes; empty means the real API.
func New(creds Credentials, baseURL string, client *http.Client) *Adapter {
	if baseURL == "" {
		baseURL = "https://googleads.googleapis.com"
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
func (a *Adapter) Platform() model.Platform { return model.GoogleAds }

// resourceName builds customers/{cid}/{collection}/{id}.
func (a *Adapter) resourceName(collection, id string) string {
	return fmt.Sprintf("customers/%s/%s/%s", a.creds.CustomerID, collection, id)
}

// idFromResourceName extracts the trailing id segment of a resource name.
func idFromResourceName(name string) string {
	idx := strings.LastIndex(name, "/")
	if idx < 0 {
		return name
	}
	return name[idx+1:]
}

func statusFor(s model.Status) string {
	switch s {
	case model.StatusPaused:
		return "PAUSED"
	case model.StatusCompleted:
		return "REMOVED"
	default:
		return "ENABLED"
	}
}

type mutateResponse struct {
	Results []struct {
		ResourceName string `json:"resourceName"`
	} `json:"results"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// mutate posts a single-operation mutate request against a collection and
// maps the response into an adapter Result.
func (a *Adapter) mutate(ctx context.Context, collection string, operation map[string]any) adapter.Result {
	body := map[string]any{"operations": []any{operation}}

	url := fmt.Sprintf("%s/%s/customers/%s/%s:mutate", a.baseURL, apiVersion, a.creds.CustomerID, collection)
	resp, result := a.do(ctx, http.MethodPost, url, body)
	if resp == nil {
		return result
	}

	var parsed mutateResponse
	if err := json.NewDecoder(bytes.NewReader(resp)).Decode(&parsed); err != nil {
		return adapter.Fail(adapter.CodeRemoteInternal, true, "malformed mutate response: %v", err)
	}
	if len(parsed.Results) == 0 {
		return adapter.Fail(adapter.CodeRemoteInternal, true, "mutate response carried no results")
	}
	return adapter.OK(idFromResourceName(parsed.Results[0].ResourceName))
}

// do executes a request and classifies failures. A non-nil byte slice means
// the call succeeded at the HTTP level; otherwise the Result explains why.
func (a *Adapter) do(ctx context.Context, method, url string, body any) ([]byte, adapter.Result) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, adapter.Fail(adapter.CodeInvalidArgument, false, "failed to encode request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, adapter.Fail(adapter.CodeInvalidArgument, false, "failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.creds.AccessToken)
	req.Header.Set("developer-token", a.creds.DeveloperToken)

	resp, err := a.client.Do(req)
	if err != nil {
		// Transport-level failure: retryable, the remote state is unknown.
		return nil, adapter.Fail(adapter.CodeRemoteInternal, true, "request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, adapter.Fail(adapter.CodeRemoteInternal, true, "failed to read response: %v", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return buf.Bytes(), adapter.Result{}
	case resp.StatusCode == http.StatusTooManyRequests:
		after := retryAfter(resp)
		logging.Debug("googleads rate limited",
			logging.Platform(string(model.GoogleAds)),
			logging.Operation(method),
		)
		return nil, adapter.FailAfter(adapter.CodeRateLimited, after, "rate limited by Google Ads")
	case resp.StatusCode == http.StatusNotFound:
		return nil, adapter.Fail(adapter.CodeNotFound, false, "entity not found")
	case resp.StatusCode >= 500:
		return nil, adapter.Fail(adapter.CodeRemoteInternal, true, "server error %d: %s", resp.StatusCode, apiMessage(buf.Bytes()))
	default:
		return nil, adapter.Fail(adapter.CodeInvalidArgument, false, "rejected with %d: %s", resp.StatusCode, apiMessage(buf.Bytes()))
	}
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

func apiMessage(body []byte) string {
	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(body))
}

func (a *Adapter) campaignPayload(c *model.Campaign) map[string]any {
	payload := map[string]any{
		"name":   c.Name,
		"status": statusFor(c.Status),
		"campaignBudget": map[string]any{
			"amountMicros": strconv.FormatInt(c.DailyBudgetMicros, 10),
		},
	}
	if c.Objective != "" {
		payload["advertisingChannelType"] = strings.ToUpper(c.Objective)
	}
	if c.StartDate != "" {
		payload["startDate"] = strings.ReplaceAll(c.StartDate, "-", "")
	}
	if c.EndDate != "" {
		payload["endDate"] = strings.ReplaceAll(c.EndDate, "-", "")
	}
	return payload
}

// CreateCampaign implements adapter.Adapter.
func (a *Adapter) CreateCampaign(ctx context.Context, c *model.Campaign) adapter.Result {
	return a.mutate(ctx, "campaigns", map[string]any{"create": a.campaignPayload(c)})
}

// UpdateCampaign implements adapter.Adapter.
func (a *Adapter) UpdateCampaign(ctx context.Context, c *model.Campaign, platformID string) adapter.Result {
	payload := a.campaignPayload(c)
	payload["resourceName"] = a.resourceName("campaigns", platformID)
	res := a.mutate(ctx, "campaigns", map[string]any{"update": payload})
	if res.Success {
		res.PlatformID = platformID
	}
	return res
}

// DeleteCampaign implements adapter.Adapter.
func (a *Adapter) DeleteCampaign(ctx context.Context, platformID string) adapter.Result {
	return a.mutate(ctx, "campaigns", map[string]any{
		"remove": a.resourceName("campaigns", platformID),
	})
}

// PauseCampaign implements adapter.Adapter.
func (a *Adapter) PauseCampaign(ctx context.Context, platformID string) adapter.Result {
	return a.setStatus(ctx, "campaigns", platformID, "PAUSED")
}

// ResumeCampaign implements adapter.Adapter.
func (a *Adapter) ResumeCampaign(ctx context.Context, platformID string) adapter.Result {
	return a.setStatus(ctx, "campaigns", platformID, "ENABLED")
}

func (a *Adapter) setStatus(ctx context.Context, collection, platformID, status string) adapter.Result {
	res := a.mutate(ctx, collection, map[string]any{
		"update": map[string]any{
			"resourceName": a.resourceName(collection, platformID),
			"status":       status,
		},
		"updateMask": "status",
	})
	if res.Success {
		res.PlatformID = platformID
	}
	return res
}

// CreateAdGroup implements adapter.Adapter.
func (a *Adapter) CreateAdGroup(ctx context.Context, g *model.AdGroup, campaignPlatformID string) adapter.Result {
	return a.mutate(ctx, "adGroups", map[string]any{
		"create": map[string]any{
			"name":         g.Name,
			"status":       statusFor(g.Status),
			"campaign":     a.resourceName("campaigns", campaignPlatformID),
			"cpcBidMicros": strconv.FormatInt(g.CPCBidMicros, 10),
		},
	})
}

// UpdateAdGroup implements adapter.Adapter.
func (a *Adapter) UpdateAdGroup(ctx context.Context, g *model.AdGroup, platformID string) adapter.Result {
	res := a.mutate(ctx, "adGroups", map[string]any{
		"update": map[string]any{
			"resourceName": a.resourceName("adGroups", platformID),
			"name":         g.Name,
			"status":       statusFor(g.Status),
			"cpcBidMicros": strconv.FormatInt(g.CPCBidMicros, 10),
		},
	})
	if res.Success {
		res.PlatformID = platformID
	}
	return res
}

// DeleteAdGroup implements adapter.Adapter.
func (a *Adapter) DeleteAdGroup(ctx context.Context, platformID string) adapter.Result {
	return a.mutate(ctx, "adGroups", map[string]any{
		"remove": a.resourceName("adGroups", platformID),
	})
}

// PauseAdGroup implements adapter.Adapter.
func (a *Adapter) PauseAdGroup(ctx context.Context, platformID string) adapter.Result {
	return a.setStatus(ctx, "adGroups", platformID, "PAUSED")
}

// ResumeAdGroup implements adapter.Adapter.
func (a *Adapter) ResumeAdGroup(ctx context.Context, platformID string) adapter.Result {
	return a.setStatus(ctx, "adGroups", platformID, "ENABLED")
}

// CreateAd implements adapter.Adapter.
func (a *Adapter) CreateAd(ctx context.Context, ad *model.Ad, adGroupPlatformID string) adapter.Result {
	return a.mutate(ctx, "adGroupAds", map[string]any{
		"create": map[string]any{
			"adGroup": a.resourceName("adGroups", adGroupPlatformID),
			"status":  statusFor(ad.Status),
			"ad": map[string]any{
				"finalUrls": []string{ad.FinalURL},
				"responsiveSearchAd": map[string]any{
					"headlines":    []map[string]string{{"text": ad.Headline}},
					"descriptions": []map[string]string{{"text": ad.Description}},
				},
			},
		},
	})
}

// UpdateAd implements adapter.Adapter. Ad content is immutable on Google Ads:
// the result always instructs the caller to delete and recreate.
func (a *Adapter) UpdateAd(_ context.Context, _ *model.Ad, _ string) adapter.Result {
	return adapter.Immutable(model.EntityAd)
}

// DeleteAd implements adapter.Adapter.
func (a *Adapter) DeleteAd(ctx context.Context, platformID string) adapter.Result {
	return a.mutate(ctx, "adGroupAds", map[string]any{
		"remove": a.resourceName("adGroupAds", platformID),
	})
}

// CreateKeyword implements adapter.Adapter.
func (a *Adapter) CreateKeyword(ctx context.Context, k *model.Keyword, adGroupPlatformID string) adapter.Result {
	return a.mutate(ctx, "adGroupCriteria", map[string]any{
		"create": map[string]any{
			"adGroup": a.resourceName("adGroups", adGroupPlatformID),
			"status":  statusFor(k.Status),
			"keyword": map[string]any{
				"text":      k.Text,
				"matchType": strings.ToUpper(k.MatchType),
			},
		},
	})
}

// UpdateKeyword implements adapter.Adapter. Keyword text and match type are
// immutable criteria on Google Ads, same contract as ads.
func (a *Adapter) UpdateKeyword(_ context.Context, _ *model.Keyword, _ string) adapter.Result {
	return adapter.Immutable(model.EntityKeyword)
}

// DeleteKeyword implements adapter.Adapter.
func (a *Adapter) DeleteKeyword(ctx context.Context, platformID string) adapter.Result {
	return a.mutate(ctx, "adGroupCriteria", map[string]any{
		"remove": a.resourceName("adGroupCriteria", platformID),
	})
}

type campaignView struct {
	ResourceName string `json:"resourceName"`
	Name         string `json:"name"`
	Status       string `json:"status"`
}

// FetchCampaign implements adapter.Adapter.
func (a *Adapter) FetchCampaign(ctx context.Context, platformID string) (*model.RemoteEntity, error) {
	url := fmt.Sprintf("%s/%s/%s", a.baseURL, apiVersion, a.resourceName("campaigns", platformID))
	body, res := a.do(ctx, http.MethodGet, url, nil)
	if body == nil {
		if res.Err != nil && res.Err.Code == adapter.CodeNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching campaign %s: %s", platformID, res.Err)
	}

	var view campaignView
	if err := json.Unmarshal(body, &view); err != nil {
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
