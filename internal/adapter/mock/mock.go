// Package mock provides a scriptable in-memory adapter for testing.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/adlift/adsync/internal/adapter"
	"github.com/adlift/adsync/internal/model"
)

// Call records a single adapter invocation.
type Call struct {
	Method     string
	LocalID    string
	PlatformID string
}

// Adapter is a mock implementation of adapter.Adapter. By default every
// operation succeeds and creates return generated platform ids; failures are
// injected by queueing results per method name.
type Adapter struct {
	mu       sync.Mutex
	platform model.Platform
	nextID   int
	queued   map[string][]adapter.Result
	fetched  map[string]*model.RemoteEntity
	fetchErr error
	calls    []Call
}

// New creates a mock adapter for the given platform.
func New(p model.Platform) *Adapter {
	return &Adapter{
		platform: p,
		queued:   make(map[string][]adapter.Result),
		fetched:  make(map[string]*model.RemoteEntity),
	}
}

// Queue schedules results for a method (e.g. "CreateCampaign"); they are
// consumed in order, after which the default success behavior resumes.
func (m *Adapter) Queue(method string, results ...adapter.Result) *Adapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued[method] = append(m.queued[method], results...)
	return m
}

// WithFetched configures FetchCampaign to return the given remote entity.
func (m *Adapter) WithFetched(platformID string, e *model.RemoteEntity) *Adapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched[platformID] = e
	return m
}

// WithFetchError configures FetchCampaign to fail with a transport error.
func (m *Adapter) WithFetchError(err error) *Adapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErr = err
	return m
}

// Calls returns every recorded invocation in order.
func (m *Adapter) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsTo returns the number of invocations of a method.
func (m *Adapter) CallsTo(method string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// DeletedIDs returns the platform ids passed to any delete method, in order.
func (m *Adapter) DeletedIDs() []string {
	var ids []string
	for _, c := range m.Calls() {
		switch c.Method {
		case "DeleteCampaign", "DeleteAdGroup", "DeleteAd", "DeleteKeyword":
			ids = append(ids, c.PlatformID)
		}
	}
	return ids
}

func (m *Adapter) record(method, localID, platformID string, entityType model.EntityType) adapter.Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Method: method, LocalID: localID, PlatformID: platformID})

	if q := m.queued[method]; len(q) > 0 {
		res := q[0]
		m.queued[method] = q[1:]
		return res
	}

	if platformID != "" {
		return adapter.OK(platformID)
	}
	m.nextID++
	return adapter.OK(fmt.Sprintf("mock-%s-%d", entityType, m.nextID))
}

// Platform implements adapter.Adapter.
func (m *Adapter) Platform() model.Platform { return m.platform }

func (m *Adapter) CreateCampaign(_ context.Context, c *model.Campaign) adapter.Result {
	return m.record("CreateCampaign", c.LocalID, "", model.EntityCampaign)
}

func (m *Adapter) UpdateCampaign(_ context.Context, c *model.Campaign, platformID string) adapter.Result {
	return m.record("UpdateCampaign", c.LocalID, platformID, model.EntityCampaign)
}

func (m *Adapter) DeleteCampaign(_ context.Context, platformID string) adapter.Result {
	return m.record("DeleteCampaign", "", platformID, model.EntityCampaign)
}

func (m *Adapter) PauseCampaign(_ context.Context, platformID string) adapter.Result {
	return m.record("PauseCampaign", "", platformID, model.EntityCampaign)
}

func (m *Adapter) ResumeCampaign(_ context.Context, platformID string) adapter.Result {
	return m.record("ResumeCampaign", "", platformID, model.EntityCampaign)
}

func (m *Adapter) CreateAdGroup(_ context.Context, g *model.AdGroup, _ string) adapter.Result {
	return m.record("CreateAdGroup", g.LocalID, "", model.EntityAdGroup)
}

func (m *Adapter) UpdateAdGroup(_ context.Context, g *model.AdGroup, platformID string) adapter.Result {
	return m.record("UpdateAdGroup", g.LocalID, platformID, model.EntityAdGroup)
}

func (m *Adapter) DeleteAdGroup(_ context.Context, platformID string) adapter.Result {
	return m.record("DeleteAdGroup", "", platformID, model.EntityAdGroup)
}

func (m *Adapter) PauseAdGroup(_ context.Context, platformID string) adapter.Result {
	return m.record("PauseAdGroup", "", platformID, model.EntityAdGroup)
}

func (m *Adapter) ResumeAdGroup(_ context.Context, platformID string) adapter.Result {
	return m.record("ResumeAdGroup", "", platformID, model.EntityAdGroup)
}

func (m *Adapter) CreateAd(_ context.Context, a *model.Ad, _ string) adapter.Result {
	return m.record("CreateAd", a.LocalID, "", model.EntityAd)
}

func (m *Adapter) UpdateAd(_ context.Context, a *model.Ad, platformID string) adapter.Result {
	return m.record("UpdateAd", a.LocalID, platformID, model.EntityAd)
}

func (m *Adapter) DeleteAd(_ context.Context, platformID string) adapter.Result {
	return m.record("DeleteAd", "", platformID, model.EntityAd)
}

func (m *Adapter) CreateKeyword(_ context.Context, k *model.Keyword, _ string) adapter.Result {
	return m.record("CreateKeyword", k.LocalID, "", model.EntityKeyword)
}

func (m *Adapter) UpdateKeyword(_ context.Context, k *model.Keyword, platformID string) adapter.Result {
	return m.record("UpdateKeyword", k.LocalID, platformID, model.EntityKeyword)
}

func (m *Adapter) DeleteKeyword(_ context.Context, platformID string) adapter.Result {
	return m.record("DeleteKeyword", "", platformID, model.EntityKeyword)
}

// FetchCampaign implements adapter.Adapter.
func (m *Adapter) FetchCampaign(_ context.Context, platformID string) (*model.RemoteEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "FetchCampaign", PlatformID: platformID})
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.fetched[platformID], nil
}
