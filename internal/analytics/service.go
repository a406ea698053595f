// Package analytics computes the base dashboard figures that the period layer
// scales for display.
package analytics

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Scope narrows the figures to what a role may see.
type Scope struct {
	Role   string
	UserID string
}

// Scoped reports whether figures are restricted to the actor's own rows.
func (s Scope) Scoped() bool {
	switch s.Role {
	case "organizer", "attendee":
		return s.UserID != ""
	default:
		return false
	}
}

func (s Scope) cacheToken() string {
	if !s.Scoped() {
		return "all"
	}
	return s.Role + "-" + s.UserID
}

// Summary holds the month-to-date base figures.
type Summary struct {
	Events      int64   `json:"events"`
	TicketsSold int64   `json:"ticketsSold"`
	Revenue     float64 `json:"revenue"`
	Attendees   int64   `json:"attendees"`
}

// Map exposes the summary in the shape the period scaler walks.
func (s Summary) Map() map[string]any {
	return map[string]any{
		"events":      s.Events,
		"ticketsSold": s.TicketsSold,
		"revenue":     s.Revenue,
		"attendees":   s.Attendees,
	}
}

// Repository exposes the aggregate queries we rely on.
type Repository interface {
	CountEvents(ctx context.Context, scope Scope) (int64, error)
	CountTicketsSold(ctx context.Context, scope Scope) (int64, error)
	SumRevenue(ctx context.Context, scope Scope) (float64, error)
	CountAttendees(ctx context.Context, scope Scope) (int64, error)
}

// Service coordinates query execution with the cache layer.
type Service struct {
	repo  Repository
	cache *Cache
	group singleflight.Group
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// GetSummary resolves the base figures for scope using cache-aware lookups.
// Concurrent callers for the same scope share one load.
func (s *Service) GetSummary(ctx context.Context, scope Scope) (Summary, error) {
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		return Summary{}, err
	}
	key := summaryKey(gen, scope.cacheToken())
	ch := s.group.DoChan(key, func() (any, error) {
		return s.cache.Summary(ctx, key, func(ctx context.Context) (Summary, error) {
			return s.load(ctx, scope)
		})
	})
	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Summary{}, res.Err
		}
		return res.Val.(Summary), nil
	}
}

// Invalidate drops every cached summary.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx)
}

func (s *Service) load(ctx context.Context, scope Scope) (Summary, error) {
	var summary Summary
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		summary.Events, err = s.repo.CountEvents(ctx, scope)
		return err
	})
	g.Go(func() (err error) {
		summary.TicketsSold, err = s.repo.CountTicketsSold(ctx, scope)
		return err
	})
	g.Go(func() (err error) {
		summary.Revenue, err = s.repo.SumRevenue(ctx, scope)
		return err
	})
	g.Go(func() (err error) {
		summary.Attendees, err = s.repo.CountAttendees(ctx, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}
