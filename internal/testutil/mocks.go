// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the mojo-insights application.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"mojo-insights/internal/domain"
)

// Common test errors
var (
	ErrMockNotImplemented = errors.New("mock function not implemented")
)

// MockSessionRepository implements domain.SessionRepository for testing
type MockSessionRepository struct {
	mu sync.RWMutex

	// Function overrides - set these to customize behavior
	CreateFunc        func(ctx context.Context, session *domain.Session) error
	UpdateProfileFunc func(ctx context.Context, token string, profile *domain.Profile) error
	GetByTokenFunc    func(ctx context.Context, token string) (*domain.Session, error)
	DeleteFunc        func(ctx context.Context, token string) error

	// In-memory storage for simple tests
	Sessions map[string]*domain.Session
}

// NewMockSessionRepository creates a new MockSessionRepository with initialized maps
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		Sessions: make(map[string]*domain.Session),
	}
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Sessions == nil {
		m.Sessions = make(map[string]*domain.Session)
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	stored := *session
	stored.Profile = nil // profile is written separately, never speculatively
	m.Sessions[session.Token] = &stored
	return nil
}

func (m *MockSessionRepository) UpdateProfile(ctx context.Context, token string, profile *domain.Profile) error {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, token, profile)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.Sessions[token]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.Profile = profile
	return nil
}

func (m *MockSessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, token)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if session, ok := m.Sessions[token]; ok {
		copied := *session
		return &copied, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockSessionRepository) Delete(ctx context.Context, token string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.Sessions, token)
	return nil
}

// MockGraphAPI implements service.GraphAPI for testing
type MockGraphAPI struct {
	mu sync.RWMutex

	// Function overrides
	ConfiguredFunc    func() bool
	LoginURLFunc      func(state string) string
	ExchangeCodeFunc  func(ctx context.Context, code string) (string, error)
	FetchProfileFunc  func(ctx context.Context, accessToken string) (*domain.Profile, error)
	FetchPagesFunc    func(ctx context.Context, accessToken string) ([]domain.Page, error)
	FetchInsightsFunc func(ctx context.Context, pageID, pageToken, since, until string) ([]domain.InsightMetric, error)

	// Canned responses for simple tests
	Profile  *domain.Profile
	Pages    []domain.Page
	Insights []domain.InsightMetric

	// Call tracking, in invocation order
	Calls []string
}

// NewMockGraphAPI creates a configured MockGraphAPI with empty canned data
func NewMockGraphAPI() *MockGraphAPI {
	return &MockGraphAPI{}
}

func (m *MockGraphAPI) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// CallOrder returns the recorded calls in invocation order
func (m *MockGraphAPI) CallOrder() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.Calls...)
}

func (m *MockGraphAPI) Configured() bool {
	if m.ConfiguredFunc != nil {
		return m.ConfiguredFunc()
	}
	return true
}

func (m *MockGraphAPI) LoginURL(state string) string {
	if m.LoginURLFunc != nil {
		return m.LoginURLFunc(state)
	}
	return "https://platform.example/dialog/oauth?state=" + state
}

func (m *MockGraphAPI) ExchangeCode(ctx context.Context, code string) (string, error) {
	m.record("exchange")
	if m.ExchangeCodeFunc != nil {
		return m.ExchangeCodeFunc(ctx, code)
	}
	return "user-token-" + code, nil
}

func (m *MockGraphAPI) FetchProfile(ctx context.Context, accessToken string) (*domain.Profile, error) {
	m.record("profile")
	if m.FetchProfileFunc != nil {
		return m.FetchProfileFunc(ctx, accessToken)
	}
	if m.Profile != nil {
		copied := *m.Profile
		return &copied, nil
	}
	return &domain.Profile{Name: "Test User", PictureURL: "https://platform.example/pic.jpg"}, nil
}

func (m *MockGraphAPI) FetchPages(ctx context.Context, accessToken string) ([]domain.Page, error) {
	m.record("pages")
	if m.FetchPagesFunc != nil {
		return m.FetchPagesFunc(ctx, accessToken)
	}
	return append([]domain.Page{}, m.Pages...), nil
}

func (m *MockGraphAPI) FetchInsights(ctx context.Context, pageID, pageToken, since, until string) ([]domain.InsightMetric, error) {
	m.record("insights")
	if m.FetchInsightsFunc != nil {
		return m.FetchInsightsFunc(ctx, pageID, pageToken, since, until)
	}
	return append([]domain.InsightMetric{}, m.Insights...), nil
}
