package service

import (
	"context"

	"bch-paywall/internal/core/domain"
	"bch-paywall/internal/core/ports"
	"bch-paywall/pkg/apperror"
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	repo  ports.SessionRepository
	clock ports.Clock
}

// NewReportingService creates a new reporting service.
func NewReportingService(repo ports.SessionRepository, clock ports.Clock) ports.ReportingService {
	return &reportingService{repo: repo, clock: clock}
}

// GetStats returns aggregated session stats for the dashboard.
func (s *reportingService) GetStats(ctx context.Context, period string) (*ports.SessionStats, error) {
	var periodStart *int64

	now := s.clock.Now()
	switch period {
	case "day":
		t := now.AddDate(0, 0, -1).Unix()
		periodStart = &t
	case "week":
		t := now.AddDate(0, 0, -7).Unix()
		periodStart = &t
	case "month":
		t := now.AddDate(0, -1, 0).Unix()
		periodStart = &t
	case "all", "":
		// No time filter
	default:
		return nil, apperror.Validation("invalid period: must be day, week, month, or all")
	}

	stats, err := s.repo.GetStats(ctx, periodStart)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	return stats, nil
}

// ListSessions returns a paginated list of payment sessions.
func (s *reportingService) ListSessions(ctx context.Context, params ports.SessionListParams) ([]domain.PaymentSession, int64, error) {
	if params.PageSize <= 0 || params.PageSize > 100 {
		params.PageSize = 20
	}
	if params.Page <= 0 {
		params.Page = 1
	}

	sessions, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return sessions, total, nil
}
