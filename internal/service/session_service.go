package service

import (
	"context"
	"fmt"
	"sync"

	"mojo-insights/internal/domain"
	"mojo-insights/internal/observability"

	"github.com/google/uuid"
)

// GraphAPI is the platform capability the session service consumes. It is
// injected rather than referenced as a global so tests can substitute a
// double.
type GraphAPI interface {
	Configured() bool
	LoginURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*domain.Profile, error)
	FetchPages(ctx context.Context, accessToken string) ([]domain.Page, error)
	FetchInsights(ctx context.Context, pageID, pageToken, since, until string) ([]domain.InsightMetric, error)
}

// sessionState is the in-memory, never-persisted side of a session: the
// fetched page list, the last computed stats, and the date range in use.
type sessionState struct {
	pages []domain.Page
	stats domain.PageStats
	dates domain.DateRange
}

// SessionService orchestrates the login chain (token exchange, profile
// fetch, page-list fetch, strictly in that order) and the page-select /
// stats-fetch sequence. It is the only component that mutates session state.
type SessionService struct {
	graph       GraphAPI
	sessionRepo domain.SessionRepository

	mu    sync.Mutex
	state map[string]*sessionState
}

func NewSessionService(graph GraphAPI, sessionRepo domain.SessionRepository) *SessionService {
	return &SessionService{
		graph:       graph,
		sessionRepo: sessionRepo,
		state:       make(map[string]*sessionState),
	}
}

// LoginURL returns the platform login dialog URL for the given state nonce.
func (s *SessionService) LoginURL(state string) (string, error) {
	if !s.graph.Configured() {
		return "", domain.ErrClientUnavailable
	}
	return s.graph.LoginURL(state), nil
}

// Login completes the authorization code flow. The steps run strictly in
// sequence: exchange the code for a token, persist the session, fetch and
// persist the profile, then fetch the page list. Each write to the store
// happens only after its fetch succeeds.
//
// A profile fetch failure returns the established session alongside the
// error: the token is already persisted and valid. A page-list failure is
// logged and leaves the cache empty; the next page read refetches and
// surfaces any error.
func (s *SessionService) Login(ctx context.Context, code string) (*domain.Session, error) {
	if !s.graph.Configured() {
		observability.LoginsTotal.WithLabelValues("client_unavailable").Inc()
		return nil, domain.ErrClientUnavailable
	}
	if code == "" {
		observability.LoginsTotal.WithLabelValues("denied").Inc()
		return nil, domain.ErrAuthorizationDenied
	}

	accessToken, err := s.graph.ExchangeCode(ctx, code)
	if err != nil {
		observability.LoginsTotal.WithLabelValues("denied").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthorizationDenied, err)
	}

	session := &domain.Session{
		Token:       uuid.New().String(),
		AccessToken: accessToken,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		observability.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	profile, err := s.graph.FetchProfile(ctx, accessToken)
	if err != nil {
		observability.LoginsTotal.WithLabelValues("profile_error").Inc()
		return session, fmt.Errorf("failed to fetch profile: %w", err)
	}
	session.Profile = profile
	if err := s.sessionRepo.UpdateProfile(ctx, session.Token, profile); err != nil {
		observability.LoginsTotal.WithLabelValues("error").Inc()
		return session, fmt.Errorf("failed to persist profile: %w", err)
	}

	pages, err := s.graph.FetchPages(ctx, accessToken)
	if err != nil {
		// Best-effort prefetch; GET /pages refetches and surfaces the error.
		observability.FromContext(ctx).Warn("page list prefetch failed",
			"error", err.Error())
	} else {
		s.setPages(session.Token, pages)
	}

	observability.LoginsTotal.WithLabelValues("ok").Inc()
	observability.FromContext(ctx).Info("user logged in",
		"name", profile.Name,
		"pages", len(pages))
	return session, nil
}

// Current rehydrates a session from the persisted store. No Graph call is
// made: a previously stored token and profile reproduce the authenticated
// view directly.
func (s *SessionService) Current(ctx context.Context, token string) (*domain.Session, error) {
	return s.sessionRepo.GetByToken(ctx, token)
}

// Pages returns the cached page list, fetching it from the platform when the
// cache is empty. On success the list replaces the cache verbatim, in the
// platform's order. On failure the cache is left unchanged and the error is
// surfaced.
func (s *SessionService) Pages(ctx context.Context, sessionToken string) ([]domain.Page, error) {
	if cached := s.getPages(sessionToken); len(cached) > 0 {
		return cached, nil
	}

	session, err := s.sessionRepo.GetByToken(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	pages, err := s.graph.FetchPages(ctx, session.AccessToken)
	if err != nil {
		observability.FromContext(ctx).Error("page list fetch failed",
			"error", err.Error())
		return s.getPages(sessionToken), fmt.Errorf("%w: %v", domain.ErrPageFetchFailed, err)
	}

	s.setPages(sessionToken, pages)
	return pages, nil
}

// PageStats fetches insights for the selected page over the given range and
// reduces them into the flat metric map. A pageID that matches nothing in
// the current list is a silent no-op: the current stats are returned
// unchanged with no error. On a fetch failure or an empty response the prior
// stats are kept and ErrStatsFetchFailed is returned. The returned range is
// always the one the returned stats cover, which on a no-op or a failure is
// the prior range, not the requested one.
func (s *SessionService) PageStats(ctx context.Context, sessionToken, pageID, since, until string) (domain.PageStats, domain.DateRange, error) {
	ctx = observability.WithPageID(ctx, pageID)

	page := domain.FindPage(s.getPages(sessionToken), pageID)
	if page == nil {
		stats, dates := s.currentStats(sessionToken)
		return stats, dates, nil
	}

	// Insight calls use the page-scoped token, never the user token.
	records, err := s.graph.FetchInsights(ctx, page.ID, page.AccessToken, since, until)
	if err != nil || len(records) == 0 {
		observability.InsightsFetchesTotal.WithLabelValues("error").Inc()
		if err != nil {
			observability.FromContext(ctx).Error("insights fetch failed",
				"error", err.Error())
		} else {
			observability.FromContext(ctx).Error("insights fetch returned no records")
		}
		stats, dates := s.currentStats(sessionToken)
		return stats, dates, domain.ErrStatsFetchFailed
	}

	stats := domain.ReduceInsights(records)
	dates := domain.DateRange{Since: since, Until: until}
	s.setStats(sessionToken, stats, dates)
	observability.InsightsFetchesTotal.WithLabelValues("ok").Inc()
	return stats, dates, nil
}

// Logout deletes the persisted session and clears every piece of in-memory
// derived state for it: page list, stats, and date range. Stale page or stat
// data must not survive a logout.
func (s *SessionService) Logout(ctx context.Context, sessionToken string) error {
	if err := s.sessionRepo.Delete(ctx, sessionToken); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.state, sessionToken)
	s.mu.Unlock()

	observability.FromContext(ctx).Info("user logged out")
	return nil
}

func (s *SessionService) stateFor(token string) *sessionState {
	if st, ok := s.state[token]; ok {
		return st
	}
	st := &sessionState{}
	s.state[token] = st
	return st
}

func (s *SessionService) getPages(token string) []domain.Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	pages := s.stateFor(token).pages
	out := make([]domain.Page, len(pages))
	copy(out, pages)
	return out
}

func (s *SessionService) setPages(token string, pages []domain.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateFor(token).pages = pages
}

func (s *SessionService) getStats(token string) domain.PageStats {
	stats, _ := s.currentStats(token)
	return stats
}

// currentStats returns the cached stats together with the range they cover.
func (s *SessionService) currentStats(token string) (domain.PageStats, domain.DateRange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stateFor(token)
	if st.stats == nil {
		return nil, st.dates
	}
	out := make(domain.PageStats, len(st.stats))
	for k, v := range st.stats {
		out[k] = v
	}
	return out, st.dates
}

// setStats replaces the stats wholesale; concurrent fetches are not
// coordinated, so the last response to arrive wins.
func (s *SessionService) setStats(token string, stats domain.PageStats, dates domain.DateRange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stateFor(token)
	st.stats = stats
	st.dates = dates
}
