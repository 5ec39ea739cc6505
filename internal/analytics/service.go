package analytics

import (
	"context"
	"fmt"

	"ticketly/internal/notifications"
	"ticketly/internal/shared/constants"
	"ticketly/pkg/cache"
	"ticketly/pkg/logger"

	"github.com/google/uuid"
)

type Service interface {
	GetEventAnalytics(ctx context.Context, eventID uuid.UUID) (*EventAnalytics, error)
	GetOverview(ctx context.Context) (*OverviewMetrics, error)

	// HandleTicketPurchased implements notifications.TicketEventHandler
	HandleTicketPurchased(ctx context.Context, evt *notifications.TicketPurchased) error
}

type service struct {
	repo         Repository
	cacheService cache.Service
}

// NewService builds the analytics service. cacheService may be nil.
func NewService(repo Repository, cacheService cache.Service) Service {
	return &service{repo: repo, cacheService: cacheService}
}

func (s *service) GetEventAnalytics(ctx context.Context, eventID uuid.UUID) (*EventAnalytics, error) {
	cacheKey := constants.BuildAnalyticsEventKey(eventID.String())

	if s.cacheService != nil {
		var cached EventAnalytics
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	analytics, err := s.repo.GetEventAnalytics(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, cacheKey, analytics, constants.TTL_ANALYTICS_EVENT); err != nil {
			logger.GetDefault().WithError(err).Warn("failed to cache event analytics", "event_id", eventID.String())
		}
	}
	return analytics, nil
}

func (s *service) GetOverview(ctx context.Context) (*OverviewMetrics, error) {
	if s.cacheService != nil {
		var cached OverviewMetrics
		if err := s.cacheService.Get(ctx, constants.CACHE_KEY_ANALYTICS_OVERVIEW, &cached); err == nil {
			return &cached, nil
		}
	}

	overview, err := s.repo.GetOverview(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get analytics overview: %w", err)
	}

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, constants.CACHE_KEY_ANALYTICS_OVERVIEW, overview, constants.TTL_ANALYTICS_EVENT); err != nil {
			logger.GetDefault().WithError(err).Warn("failed to cache analytics overview")
		}
	}
	return overview, nil
}

func (s *service) HandleTicketPurchased(ctx context.Context, evt *notifications.TicketPurchased) error {
	recorded, err := s.repo.RecordSale(ctx, evt)
	if err != nil {
		return err
	}
	if !recorded {
		logger.GetDefault().DebugWithContext(ctx, "ticket event already aggregated", map[string]interface{}{
			"ticket_id": evt.TicketID.String(),
		})
		return nil
	}

	if s.cacheService != nil {
		if err := s.cacheService.Delete(ctx,
			constants.BuildAnalyticsEventKey(evt.EventID.String()),
			constants.CACHE_KEY_ANALYTICS_OVERVIEW,
		); err != nil {
			logger.GetDefault().WithError(err).Warn("failed to invalidate analytics cache", "event_id", evt.EventID.String())
		}
	}
	return nil
}
