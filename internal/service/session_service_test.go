package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"mojo-insights/internal/domain"
)

// Mock collaborators for testing
type mockSessionRepository struct {
	sessions      map[string]*domain.Session
	create        func(ctx context.Context, session *domain.Session) error
	updateProfile func(ctx context.Context, token string, profile *domain.Profile) error
	getByToken    func(ctx context.Context, token string) (*domain.Session, error)
	delete        func(ctx context.Context, token string) error
}

func (m *mockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if m.create != nil {
		return m.create(ctx, session)
	}
	if m.sessions == nil {
		m.sessions = make(map[string]*domain.Session)
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	stored := *session
	stored.Profile = nil
	m.sessions[session.Token] = &stored
	return nil
}

func (m *mockSessionRepository) UpdateProfile(ctx context.Context, token string, profile *domain.Profile) error {
	if m.updateProfile != nil {
		return m.updateProfile(ctx, token, profile)
	}
	session, ok := m.sessions[token]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.Profile = profile
	return nil
}

func (m *mockSessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if m.getByToken != nil {
		return m.getByToken(ctx, token)
	}
	session, ok := m.sessions[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (m *mockSessionRepository) Delete(ctx context.Context, token string) error {
	if m.delete != nil {
		return m.delete(ctx, token)
	}
	delete(m.sessions, token)
	return nil
}

type mockGraph struct {
	configured    func() bool
	loginURL      func(state string) string
	exchangeCode  func(ctx context.Context, code string) (string, error)
	fetchProfile  func(ctx context.Context, accessToken string) (*domain.Profile, error)
	fetchPages    func(ctx context.Context, accessToken string) ([]domain.Page, error)
	fetchInsights func(ctx context.Context, pageID, pageToken, since, until string) ([]domain.InsightMetric, error)

	calls []string
}

func (m *mockGraph) Configured() bool {
	if m.configured != nil {
		return m.configured()
	}
	return true
}

func (m *mockGraph) LoginURL(state string) string {
	if m.loginURL != nil {
		return m.loginURL(state)
	}
	return "https://platform.example/dialog?state=" + state
}

func (m *mockGraph) ExchangeCode(ctx context.Context, code string) (string, error) {
	m.calls = append(m.calls, "exchange")
	if m.exchangeCode != nil {
		return m.exchangeCode(ctx, code)
	}
	return "user-token", nil
}

func (m *mockGraph) FetchProfile(ctx context.Context, accessToken string) (*domain.Profile, error) {
	m.calls = append(m.calls, "profile")
	if m.fetchProfile != nil {
		return m.fetchProfile(ctx, accessToken)
	}
	return &domain.Profile{Name: "Alice", PictureURL: "https://platform.example/alice.jpg"}, nil
}

func (m *mockGraph) FetchPages(ctx context.Context, accessToken string) ([]domain.Page, error) {
	m.calls = append(m.calls, "pages")
	if m.fetchPages != nil {
		return m.fetchPages(ctx, accessToken)
	}
	return nil, nil
}

func (m *mockGraph) FetchInsights(ctx context.Context, pageID, pageToken, since, until string) ([]domain.InsightMetric, error) {
	m.calls = append(m.calls, "insights")
	if m.fetchInsights != nil {
		return m.fetchInsights(ctx, pageID, pageToken, since, until)
	}
	return nil, nil
}

func TestSessionService_Login_Success(t *testing.T) {
	graph := &mockGraph{
		fetchPages: func(ctx context.Context, accessToken string) ([]domain.Page, error) {
			return []domain.Page{{ID: "p1", Name: "Page One", AccessToken: "page-token-1"}}, nil
		},
	}
	repo := &mockSessionRepository{}
	svc := NewSessionService(graph, repo)

	ctx := context.Background()
	session, err := svc.Login(ctx, "auth-code")

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if session == nil {
		t.Fatal("Expected non-nil session")
	}
	if session.Token == "" {
		t.Error("Expected session token to be set")
	}
	if session.AccessToken != "user-token" {
		t.Errorf("Expected access token 'user-token', got %s", session.AccessToken)
	}
	if session.Profile == nil || session.Profile.Name != "Alice" {
		t.Errorf("Expected profile for Alice, got %+v", session.Profile)
	}

	stored := repo.sessions[session.Token]
	if stored == nil {
		t.Fatal("Expected session to be persisted")
	}
	if stored.Profile == nil || stored.Profile.Name != "Alice" {
		t.Errorf("Expected persisted profile for Alice, got %+v", stored.Profile)
	}

	pages, err := svc.Pages(ctx, session.Token)
	if err != nil {
		t.Fatalf("Expected cached pages, got error: %v", err)
	}
	if len(pages) != 1 || pages[0].ID != "p1" {
		t.Errorf("Expected prefetched page list, got %+v", pages)
	}
}

func TestSessionService_Login_ChainOrder(t *testing.T) {
	graph := &mockGraph{}
	repo := &mockSessionRepository{}
	svc := NewSessionService(graph, repo)

	_, err := svc.Login(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := []string{"exchange", "profile", "pages"}
	if len(graph.calls) != len(expected) {
		t.Fatalf("Expected calls %v, got %v", expected, graph.calls)
	}
	for i, call := range expected {
		if graph.calls[i] != call {
			t.Errorf("Expected call %d to be %s, got %s", i, call, graph.calls[i])
		}
	}
}

func TestSessionService_Login_EmptyCode(t *testing.T) {
	graph := &mockGraph{}
	repo := &mockSessionRepository{}
	svc := NewSessionService(graph, repo)

	session, err := svc.Login(context.Background(), "")

	if !errors.Is(err, domain.ErrAuthorizationDenied) {
		t.Errorf("Expected ErrAuthorizationDenied, got: %v", err)
	}
	if session != nil {
		t.Errorf("Expected nil session, got: %+v", session)
	}
	if len(graph.calls) != 0 {
		t.Errorf("Expected no graph calls, got: %v", graph.calls)
	}
	if len(repo.sessions) != 0 {
		t.Error("Expected nothing persisted for a denied login")
	}
}

func TestSessionService_Login_ExchangeFails(t *testing.T) {
	graph := &mockGraph{
		exchangeCode: func(ctx context.Context, code string) (string, error) {
			return "", errors.New("invalid verification code")
		},
	}
	repo := &mockSessionRepository{}
	svc := NewSessionService(graph, repo)

	session, err := svc.Login(context.Background(), "bad-code")

	if !errors.Is(err, domain.ErrAuthorizationDenied) {
		t.Errorf("Expected ErrAuthorizationDenied, got: %v", err)
	}
	if session != nil {
		t.Errorf("Expected nil session, got: %+v", session)
	}
	if len(repo.sessions) != 0 {
		t.Error("Expected nothing persisted when the exchange fails")
	}
}

func TestSessionService_Login_NotConfigured(t *testing.T) {
	graph := &mockGraph{
		configured: func() bool { return false },
	}
	svc := NewSessionService(graph, &mockSessionRepository{})

	session, err := svc.Login(context.Background(), "auth-code")

	if !errors.Is(err, domain.ErrClientUnavailable) {
		t.Errorf("Expected ErrClientUnavailable, got: %v", err)
	}
	if session != nil {
		t.Errorf("Expected nil session, got: %+v", session)
	}
}

func TestSessionService_Login_ProfileFetchFails(t *testing.T) {
	graph := &mockGraph{
		fetchProfile: func(ctx context.Context, accessToken string) (*domain.Profile, error) {
			return nil, errors.New("profile unavailable")
		},
	}
	repo := &mockSessionRepository{}
	svc := NewSessionService(graph, repo)

	session, err := svc.Login(context.Background(), "auth-code")

	if err == nil {
		t.Error("Expected error when profile fetch fails")
	}
	if session == nil {
		t.Fatal("Expected the established session despite the profile failure")
	}

	// The token is persisted, the profile is not.
	stored := repo.sessions[session.Token]
	if stored == nil {
		t.Fatal("Expected session to be persisted")
	}
	if stored.Profile != nil {
		t.Errorf("Expected no persisted profile, got %+v", stored.Profile)
	}
}

func TestSessionService_Login_PagePrefetchFailureIsNotFatal(t *testing.T) {
	graph := &mockGraph{
		fetchPages: func(ctx context.Context, accessToken string) ([]domain.Page, error) {
			return nil, errors.New("pages unavailable")
		},
	}
	repo := &mockSessionRepository{}
	svc := NewSessionService(graph, repo)

	session, err := svc.Login(context.Background(), "auth-code")

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if session == nil {
		t.Fatal("Expected non-nil session")
	}
}

func TestSessionService_Current(t *testing.T) {
	repo := &mockSessionRepository{
		sessions: map[string]*domain.Session{
			"tok": {
				Token:       "tok",
				AccessToken: "user-token",
				Profile:     &domain.Profile{Name: "Alice"},
			},
		},
	}
	graph := &mockGraph{}
	svc := NewSessionService(graph, repo)

	session, err := svc.Current(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !session.Authenticated() {
		t.Error("Expected rehydrated session to be authenticated")
	}
	if session.Profile == nil || session.Profile.Name != "Alice" {
		t.Errorf("Expected stored profile, got %+v", session.Profile)
	}
	// Rehydration never touches the platform.
	if len(graph.calls) != 0 {
		t.Errorf("Expected no graph calls, got: %v", graph.calls)
	}
}

func TestSessionService_Pages_FetchesWhenCacheEmpty(t *testing.T) {
	graph := &mockGraph{
		fetchPages: func(ctx context.Context, accessToken string) ([]domain.Page, error) {
			return []domain.Page{
				{ID: "b", Name: "Bravo"},
				{ID: "a", Name: "Alpha"},
			}, nil
		},
	}
	repo := &mockSessionRepository{
		sessions: map[string]*domain.Session{
			"tok": {Token: "tok", AccessToken: "user-token"},
		},
	}
	svc := NewSessionService(graph, repo)

	pages, err := svc.Pages(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// Platform order is preserved, never re-sorted.
	if len(pages) != 2 || pages[0].ID != "b" || pages[1].ID != "a" {
		t.Errorf("Expected platform order [b a], got %+v", pages)
	}

	// Second read serves the cache.
	graph.calls = nil
	if _, err := svc.Pages(context.Background(), "tok"); err != nil {
		t.Fatalf("Expected cached read, got error: %v", err)
	}
	if len(graph.calls) != 0 {
		t.Errorf("Expected no graph calls on cached read, got: %v", graph.calls)
	}
}

func TestSessionService_Pages_FetchFailureSurfacesError(t *testing.T) {
	fail := false
	graph := &mockGraph{
		fetchPages: func(ctx context.Context, accessToken string) ([]domain.Page, error) {
			if fail {
				return nil, errors.New("pages unavailable")
			}
			return []domain.Page{{ID: "p1", Name: "Page One"}}, nil
		},
	}
	repo := &mockSessionRepository{
		sessions: map[string]*domain.Session{
			"tok": {Token: "tok", AccessToken: "user-token"},
		},
	}
	svc := NewSessionService(graph, repo)

	if _, err := svc.Pages(context.Background(), "tok"); err != nil {
		t.Fatalf("Expected initial fetch to succeed, got: %v", err)
	}

	// Clear the cache so the next read refetches against a failing platform.
	fail = true
	svc.setPages("tok", nil)

	pages, err := svc.Pages(context.Background(), "tok")
	if !errors.Is(err, domain.ErrPageFetchFailed) {
		t.Errorf("Expected ErrPageFetchFailed, got: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("Expected empty list alongside the error, got %+v", pages)
	}
}

func statsFixture() []domain.InsightMetric {
	return []domain.InsightMetric{
		{Name: domain.MetricFollows, Values: []domain.InsightValue{{Value: 10}}},
		{Name: domain.MetricEngagement, Values: []domain.InsightValue{{Value: 20}}},
		{Name: domain.MetricImpressions, Values: []domain.InsightValue{{Value: 30}}},
		{Name: domain.MetricLikeReactions, Values: []domain.InsightValue{{Value: 40}}},
	}
}

func TestSessionService_PageStats_Success(t *testing.T) {
	var gotPageID, gotToken, gotSince, gotUntil string
	graph := &mockGraph{
		fetchInsights: func(ctx context.Context, pageID, pageToken, since, until string) ([]domain.InsightMetric, error) {
			gotPageID, gotToken, gotSince, gotUntil = pageID, pageToken, since, until
			return statsFixture(), nil
		},
	}
	svc := NewSessionService(graph, &mockSessionRepository{})
	svc.setPages("tok", []domain.Page{{ID: "p1", Name: "Page One", AccessToken: "page-token-1"}})

	stats, dates, err := svc.PageStats(context.Background(), "tok", "p1", "2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if stats[domain.MetricFollows] != 10 || stats[domain.MetricLikeReactions] != 40 {
		t.Errorf("Expected reduced stats, got %+v", stats)
	}
	if dates.Since != "2024-01-01" || dates.Until != "2024-01-31" {
		t.Errorf("Expected the fetched range back, got %+v", dates)
	}
	if gotPageID != "p1" {
		t.Errorf("Expected page ID p1, got %s", gotPageID)
	}
	// The page-scoped token authorizes insight calls, not the user token.
	if gotToken != "page-token-1" {
		t.Errorf("Expected page token, got %s", gotToken)
	}
	if gotSince != "2024-01-01" || gotUntil != "2024-01-31" {
		t.Errorf("Expected range to pass through, got since=%s until=%s", gotSince, gotUntil)
	}
}

func TestSessionService_PageStats_UnknownPageIsNoOp(t *testing.T) {
	graph := &mockGraph{
		fetchInsights: func(ctx context.Context, pageID, pageToken, since, until string) ([]domain.InsightMetric, error) {
			return statsFixture(), nil
		},
	}
	svc := NewSessionService(graph, &mockSessionRepository{})
	svc.setPages("tok", []domain.Page{{ID: "p1", AccessToken: "page-token-1"}})

	if _, _, err := svc.PageStats(context.Background(), "tok", "p1", "2024-01-01", "2024-01-31"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	graph.calls = nil

	stats, dates, err := svc.PageStats(context.Background(), "tok", "unknown", "2024-02-01", "2024-02-28")
	if err != nil {
		t.Errorf("Expected silent no-op for unknown page, got: %v", err)
	}
	if len(graph.calls) != 0 {
		t.Errorf("Expected no graph calls for unknown page, got: %v", graph.calls)
	}
	// Current stats are returned unchanged, with the range they cover rather
	// than the requested one.
	if stats[domain.MetricFollows] != 10 {
		t.Errorf("Expected prior stats to survive, got %+v", stats)
	}
	if dates.Since != "2024-01-01" || dates.Until != "2024-01-31" {
		t.Errorf("Expected the prior range back, got %+v", dates)
	}
}

func TestSessionService_PageStats_FetchFailureKeepsPriorStats(t *testing.T) {
	fail := false
	graph := &mockGraph{
		fetchInsights: func(ctx context.Context, pageID, pageToken, since, until string) ([]domain.InsightMetric, error) {
			if fail {
				return nil, errors.New("insights unavailable")
			}
			return statsFixture(), nil
		},
	}
	svc := NewSessionService(graph, &mockSessionRepository{})
	svc.setPages("tok", []domain.Page{{ID: "p1", AccessToken: "page-token-1"}})

	if _, _, err := svc.PageStats(context.Background(), "tok", "p1", "2024-01-01", "2024-01-31"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	fail = true
	stats, dates, err := svc.PageStats(context.Background(), "tok", "p1", "2024-02-01", "2024-02-28")
	if !errors.Is(err, domain.ErrStatsFetchFailed) {
		t.Errorf("Expected ErrStatsFetchFailed, got: %v", err)
	}
	if stats[domain.MetricFollows] != 10 {
		t.Errorf("Expected prior stats to survive the failure, got %+v", stats)
	}
	if dates.Since != "2024-01-01" || dates.Until != "2024-01-31" {
		t.Errorf("Expected the prior range alongside the prior stats, got %+v", dates)
	}
}

func TestSessionService_PageStats_EmptyResponseIsAFailure(t *testing.T) {
	graph := &mockGraph{
		fetchInsights: func(ctx context.Context, pageID, pageToken, since, until string) ([]domain.InsightMetric, error) {
			return []domain.InsightMetric{}, nil
		},
	}
	svc := NewSessionService(graph, &mockSessionRepository{})
	svc.setPages("tok", []domain.Page{{ID: "p1", AccessToken: "page-token-1"}})

	_, _, err := svc.PageStats(context.Background(), "tok", "p1", "2024-01-01", "2024-01-31")
	if !errors.Is(err, domain.ErrStatsFetchFailed) {
		t.Errorf("Expected ErrStatsFetchFailed for empty response, got: %v", err)
	}
}

func TestSessionService_PageStats_ReplacesWholesale(t *testing.T) {
	calls := 0
	graph := &mockGraph{
		fetchInsights: func(ctx context.Context, pageID, pageToken, since, until string) ([]domain.InsightMetric, error) {
			calls++
			if calls == 1 {
				return statsFixture(), nil
			}
			return []domain.InsightMetric{
				{Name: domain.MetricFollows, Values: []domain.InsightValue{{Value: 99}}},
			}, nil
		},
	}
	svc := NewSessionService(graph, &mockSessionRepository{})
	svc.setPages("tok", []domain.Page{{ID: "p1", AccessToken: "page-token-1"}})

	if _, _, err := svc.PageStats(context.Background(), "tok", "p1", "", ""); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	stats, _, err := svc.PageStats(context.Background(), "tok", "p1", "", "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if stats[domain.MetricFollows] != 99 {
		t.Errorf("Expected follows 99 after refresh, got %d", stats[domain.MetricFollows])
	}
	// The second response had one metric; the rest reset to zero rather than
	// leaking values from the first fetch.
	if stats[domain.MetricImpressions] != 0 {
		t.Errorf("Expected impressions reset to 0, got %d", stats[domain.MetricImpressions])
	}
}

func TestSessionService_Logout_ClearsEverything(t *testing.T) {
	graph := &mockGraph{
		fetchPages: func(ctx context.Context, accessToken string) ([]domain.Page, error) {
			return []domain.Page{{ID: "p1", Name: "Page One", AccessToken: "page-token-1"}}, nil
		},
		fetchInsights: func(ctx context.Context, pageID, pageToken, since, until string) ([]domain.InsightMetric, error) {
			return statsFixture(), nil
		},
	}
	repo := &mockSessionRepository{}
	svc := NewSessionService(graph, repo)

	ctx := context.Background()
	session, err := svc.Login(ctx, "auth-code")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, _, err := svc.PageStats(ctx, session.Token, "p1", "", ""); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if err := svc.Logout(ctx, session.Token); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if _, ok := repo.sessions[session.Token]; ok {
		t.Error("Expected persisted session to be deleted")
	}
	if pages := svc.getPages(session.Token); len(pages) != 0 {
		t.Errorf("Expected page cache cleared, got %+v", pages)
	}
	if stats := svc.getStats(session.Token); stats != nil {
		t.Errorf("Expected stats cleared, got %+v", stats)
	}
}

func TestSessionService_LoginURL(t *testing.T) {
	graph := &mockGraph{}
	svc := NewSessionService(graph, &mockSessionRepository{})

	loginURL, err := svc.LoginURL("nonce123")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if loginURL != "https://platform.example/dialog?state=nonce123" {
		t.Errorf("Unexpected login URL: %s", loginURL)
	}

	graph.configured = func() bool { return false }
	if _, err := svc.LoginURL("nonce123"); !errors.Is(err, domain.ErrClientUnavailable) {
		t.Errorf("Expected ErrClientUnavailable, got: %v", err)
	}
}
