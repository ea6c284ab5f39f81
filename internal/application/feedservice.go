// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/luoyuxi/campusfeed/internal/domain/model"
	"github.com/luoyuxi/campusfeed/internal/domain/port/driven"
)

// FeedService orchestrates one refresh run of the aggregated feed: a single
// identity-provider login, then an independent authorize-and-fetch pipeline
// per provider. One dead provider never blocks the other three; only a login
// failure aborts the whole run.
type FeedService struct {
	idp     driven.IdentityClient
	sources []driven.NotificationSource
	store   driven.NotificationStore
	creds   model.Credentials
	logger  *slog.Logger

	// runMu serializes whole refresh runs. It is never held while state is
	// read, so State stays responsive during the network-bound run.
	runMu sync.Mutex

	mu    sync.Mutex // guards state only
	state model.RunState
}

// NewFeedService creates a FeedService with all required dependencies.
func NewFeedService(
	idp driven.IdentityClient,
	sources []driven.NotificationSource,
	store driven.NotificationStore,
	creds model.Credentials,
	logger *slog.Logger,
) *FeedService {
	return &FeedService{
		idp:     idp,
		sources: sources,
		store:   store,
		creds:   creds,
		logger:  logger,
		state:   model.RunStateNotFetched,
	}
}

// State reports whether the feed has been populated. Never blocks on an
// in-flight run, so the health endpoint stays live through a fetch.
func (s *FeedService) State() model.RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *FeedService) setState(state model.RunState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// EnsureFetched runs a refresh if no data has been fetched yet. Called by the
// read path on first request; concurrent callers serialize on the run and the
// late ones find the feed already ready.
func (s *FeedService) EnsureFetched(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.State() == model.RunStateReady {
		return nil
	}

	_, err := s.refresh(ctx)
	return err
}

// Refresh performs a full run: login, clear the store, fan out over every
// provider, and record a per-provider outcome. The returned error is non-nil
// only for whole-run failures (login, cancellation); individual provider
// failures live in their outcomes.
func (s *FeedService) Refresh(ctx context.Context) ([]model.SourceOutcome, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.refresh(ctx)
}

// refresh must be called with s.runMu held.
func (s *FeedService) refresh(ctx context.Context) ([]model.SourceOutcome, error) {
	s.setState(model.RunStateFetching)

	if err := s.idp.Login(ctx, s.creds); err != nil {
		s.setState(model.RunStateNotFetched)
		return nil, fmt.Errorf("identity provider login: %w", err)
	}

	if err := s.store.DeleteAll(ctx); err != nil {
		s.setState(model.RunStateNotFetched)
		return nil, fmt.Errorf("clear store: %w", err)
	}

	// The four pipelines are independent once login is done; fan out.
	// Goroutines never return an error: a failed provider is an outcome,
	// not a reason to cancel its siblings.
	outcomes := make([]model.SourceOutcome, len(s.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range s.sources {
		g.Go(func() error {
			outcomes[i] = s.collectOne(gctx, src)
			return nil
		})
	}
	_ = g.Wait()

	// A cancelled run has already cleared the store and only partially
	// refilled it; the feed is not ready and the next read must re-fetch.
	if err := ctx.Err(); err != nil {
		s.setState(model.RunStateNotFetched)
		return nil, fmt.Errorf("refresh interrupted: %w", err)
	}

	s.setState(model.RunStateReady)

	for _, out := range outcomes {
		if out.Err != nil {
			s.logger.Warn("provider failed", "source", out.Source, "error", out.Err)
		} else {
			s.logger.Info("provider collected", "source", out.Source, "count", out.Count)
		}
	}

	return outcomes, nil
}

// collectOne runs a single provider's authorize-and-fetch pair and stores the
// resulting records.
func (s *FeedService) collectOne(ctx context.Context, src driven.NotificationSource) model.SourceOutcome {
	outcome := model.SourceOutcome{Source: src.Name()}

	records, err := src.Collect(ctx)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	for _, n := range records {
		if err := s.store.Upsert(ctx, n); err != nil {
			outcome.Err = fmt.Errorf("store %s record: %w", src.Name(), err)
			return outcome
		}
	}

	outcome.Count = len(records)
	return outcome
}
