package googleads

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adlift/adsync/internal/adapter"
	"github.com/adlift/adsync/internal/model"
)

func testCreds() Credentials {
	return Credentials{
		DeveloperToken: "dev-token",
		CustomerID:     "1234567890",
		AccessToken:    "access-token",
	}
}

func mutateOK(resourceName string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{{"resourceName": resourceName}},
		})
	}
}

func TestCreateCampaign(t *testing.T) {
	var gotPath, gotAuth, gotDevToken string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotDevToken = r.Header.Get("developer-token")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		mutateOK("customers/1234567890/campaigns/111")(w, r)
	}))
	defer srv.Close()

	a := New(testCreds(), srv.URL, srv.Client())
	res := a.CreateCampaign(context.Background(), &model.Campaign{
		SyncInfo:          model.SyncInfo{LocalID: "c1", Status: model.StatusActive},
		Name:              "Spring Sale",
		DailyBudgetMicros: 2_000_000,
		StartDate:         "2026-03-01",
	})

	if !res.Success {
		t.Fatalf("create failed: %+v", res.Err)
	}
	if res.PlatformID != "111" {
		t.Errorf("platform id = %q, want trailing resource segment 111", res.PlatformID)
	}
	if gotPath != "/v16/customers/1234567890/campaigns:mutate" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer access-token" || gotDevToken != "dev-token" {
		t.Errorf("auth headers = %q / %q", gotAuth, gotDevToken)
	}

	ops := gotBody["operations"].([]any)
	create := ops[0].(map[string]any)["create"].(map[string]any)
	if create["name"] != "Spring Sale" || create["status"] != "ENABLED" {
		t.Errorf("create payload = %v", create)
	}
	if create["startDate"] != "20260301" {
		t.Errorf("start date = %v, want compact form", create["startDate"])
	}
}

func TestRateLimitedIsRetryableWithBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := New(testCreds(), srv.URL, srv.Client())
	res := a.DeleteCampaign(context.Background(), "111")

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Err.Code != adapter.CodeRateLimited {
		t.Errorf("code = %q, want rate_limited", res.Err.Code)
	}
	if !res.Err.Retryable {
		t.Error("rate limits must be retryable")
	}
	if res.Err.RetryAfter != 30*time.Second {
		t.Errorf("retry after = %v, want 30s", res.Err.RetryAfter)
	}
}

func TestServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := New(testCreds(), srv.URL, srv.Client())
	res := a.CreateCampaign(context.Background(), &model.Campaign{Name: "x"})
	if res.Success || !res.Err.Retryable || res.Err.Code != adapter.CodeRemoteInternal {
		t.Fatalf("result = %+v, want retryable remote_internal", res.Err)
	}
}

func TestRejectionIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "budget too low", "status": "INVALID_ARGUMENT"},
		})
	}))
	defer srv.Close()

	a := New(testCreds(), srv.URL, srv.Client())
	res := a.CreateCampaign(context.Background(), &model.Campaign{Name: "x"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Err.Code != adapter.CodeInvalidArgument || res.Err.Retryable {
		t.Errorf("err = %+v, want non-retryable invalid_argument", res.Err)
	}
	if res.Err.Message == "" {
		t.Error("API message was dropped")
	}
}

func TestUpdateAdAndKeywordAreImmutable(t *testing.T) {
	// No server: immutable rejections never reach the network.
	a := New(testCreds(), "http://127.0.0.1:0", nil)

	res := a.UpdateAd(context.Background(), &model.Ad{}, "111")
	if res.Success || res.Err.Code != adapter.CodeImmutableEntity || res.Err.Retryable {
		t.Fatalf("UpdateAd = %+v, want immutable_entity", res.Err)
	}
	res = a.UpdateKeyword(context.Background(), &model.Keyword{}, "222")
	if res.Success || res.Err.Code != adapter.CodeImmutableEntity {
		t.Fatalf("UpdateKeyword = %+v, want immutable_entity", res.Err)
	}
}

func TestFetchCampaign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v16/customers/1234567890/campaigns/111" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(campaignView{
			ResourceName: "customers/1234567890/campaigns/111",
			Name:         "Spring Sale",
			Status:       "PAUSED",
		})
	}))
	defer srv.Close()

	a := New(testCreds(), srv.URL, srv.Client())

	remote, err := a.FetchCampaign(context.Background(), "111")
	if err != nil {
		t.Fatalf("FetchCampaign: %v", err)
	}
	if remote == nil {
		t.Fatal("expected a remote entity")
	}
	if remote.Fields["name"] != "Spring Sale" || remote.Fields["status"] != "PAUSED" {
		t.Errorf("fields = %v", remote.Fields)
	}

	// 404 means deleted on platform, not an error.
	remote, err = a.FetchCampaign(context.Background(), "999")
	if err != nil {
		t.Fatalf("FetchCampaign 404: %v", err)
	}
	if remote != nil {
		t.Fatalf("got %+v, want nil for a deleted campaign", remote)
	}
}

func TestDeleteUsesRemoveOperation(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		mutateOK("customers/1234567890/adGroups/222")(w, r)
	}))
	defer srv.Close()

	a := New(testCreds(), srv.URL, srv.Client())
	res := a.DeleteAdGroup(context.Background(), "222")
	if !res.Success {
		t.Fatalf("delete failed: %+v", res.Err)
	}

	ops := gotBody["operations"].([]any)
	remove := ops[0].(map[string]any)["remove"]
	if remove != "customers/1234567890/adGroups/222" {
		t.Errorf("remove = %v, want full resource name", remove)
	}
}

func TestLoadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "googleads.toml")
	content := `
developer_token = "dev-token"
customer_id = "1234567890"
access_token = "access-token"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing credentials: %v", err)
	}

	creds, err := LoadCredentials(path)
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if creds != testCreds() {
		t.Errorf("creds = %+v", creds)
	}

	if _, err := LoadCredentials(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadCredentialsRequiresCustomerID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "googleads.toml")
	if err := os.WriteFile(path, []byte(`access_token = "x"`), 0o600); err != nil {
		t.Fatalf("writing credentials: %v", err)
	}
	if _, err := LoadCredentials(path); err == nil {
		t.Fatal("expected error for missing customer_id")
	}
}
