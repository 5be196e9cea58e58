// Package adapter defines the uniform contract every advertising platform
// implementation satisfies. Adapters are the only components that perform
// network I/O; platform-specific request shapes (resource names, field names,
// micro-unit encodings) never leak past them.
//
// Expected remote rejections — validation failures, rate limits, not-found —
// are returned as failed Results, never as Go errors. Only genuinely
// unexpected transport failures surface as errors, and the sync engine treats
// those as non-retryable fatal operation errors.
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/adlift/adsync/internal/model"
)

// Error codes shared across adapter implementations.
const (
	CodeRateLimited     = "rate_limited"
	CodeInvalidArgument = "invalid_argument"
	CodeNotFound        = "not_found"
	CodeImmutableEntity = "immutable_entity"
	CodeRemoteInternal  = "remote_internal"
)

// Error is a typed remote failure carried inside a Result.
type Error struct {
	Code      string
	Message   string
	Retryable bool
	// RetryAfter is an optional backoff hint from the platform, zero when
	// the platform gave none.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Result is the uniform outcome of a single adapter operation.
type Result struct {
	Success bool
	// PlatformID is the platform-assigned identifier, set on successful
	// creates (and echoed on updates).
	PlatformID string
	Err        *Error
}

// OK returns a successful result carrying a platform id.
func OK(platformID string) Result {
	return Result{Success: true, PlatformID: platformID}
}

// Fail returns a failed result with the given code and retryability.
func Fail(code string, retryable bool, format string, args ...any) Result {
	return Result{Err: &Error{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Retryable: retryable,
	}}
}

// FailAfter returns a retryable failure with a platform backoff hint.
func FailAfter(code string, after time.Duration, format string, args ...any) Result {
	return Result{Err: &Error{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		Retryable:  true,
		RetryAfter: after,
	}}
}

// Immutable returns the deterministic failure adapters use for entity kinds
// the platform cannot patch in place: the caller must delete and recreate.
func Immutable(kind model.EntityType) Result {
	return Fail(CodeImmutableEntity, false,
		"%s content is immutable on this platform; delete and recreate instead", kind)
}

// Adapter is the per-platform CRUD contract. Child creates receive the
// parent's platform id explicitly; the sync engine resolves it from the tree
// or from creates earlier in the same batch.
type Adapter interface {
	// Platform returns the platform this adapter talks to.
	Platform() model.Platform

	CreateCampaign(ctx context.Context, c *model.Campaign) Result
	UpdateCampaign(ctx context.Context, c *model.Campaign, platformID string) Result
	DeleteCampaign(ctx context.Context, platformID string) Result
	PauseCampaign(ctx context.Context, platformID string) Result
	ResumeCampaign(ctx context.Context, platformID string) Result

	CreateAdGroup(ctx context.Context, g *model.AdGroup, campaignPlatformID string) Result
	UpdateAdGroup(ctx context.Context, g *model.AdGroup, platformID string) Result
	DeleteAdGroup(ctx context.Context, platformID string) Result
	PauseAdGroup(ctx context.Context, platformID string) Result
	ResumeAdGroup(ctx context.Context, platformID string) Result

	CreateAd(ctx context.Context, a *model.Ad, adGroupPlatformID string) Result
	UpdateAd(ctx context.Context, a *model.Ad, platformID string) Result
	DeleteAd(ctx context.Context, platformID string) Result

	CreateKeyword(ctx context.Context, k *model.Keyword, adGroupPlatformID string) Result
	UpdateKeyword(ctx context.Context, k *model.Keyword, platformID string) Result
	DeleteKeyword(ctx context.Context, platformID string) Result

	// FetchCampaign returns the current remote view of a campaign for
	// reverse-sync. A (nil, nil) return means the platform no longer has the
	// entity; errors are reserved for transport failures.
	FetchCampaign(ctx context.Context, platformID string) (*model.RemoteEntity, error)
}
