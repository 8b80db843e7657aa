package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nathantilsley/review-sentry/internal/review/domain"
)

// PortsFactory returns collaborators authenticated for one App installation.
type PortsFactory func(installationID int64) (Ports, error)

// Service runs reviews for incoming deliveries.
type Service struct {
	ports  PortsFactory
	logger *slog.Logger
	opts   []Option
}

// NewService creates a review service.
func NewService(ports PortsFactory, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ports: ports, logger: logger, opts: opts}
}

// Review runs Precheck for rc with installation-scoped ports.
func (s *Service) Review(ctx context.Context, rc domain.ReviewContext) (domain.PrecheckResult, error) {
	ports, err := s.ports(rc.InstallationID)
	if err != nil {
		return domain.PrecheckResult{}, domain.WrapError(domain.KindUpstream,
			fmt.Sprintf("creating clients for installation %d", rc.InstallationID), err)
	}
	return NewPullReviewer(rc, ports, s.logger, s.opts...).Precheck(ctx)
}
