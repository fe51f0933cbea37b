// Package schedules lists the webinar's bookable slots.
package schedules

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/everweb-bridge/backend/internal/everwebinar"
	"github.com/everweb-bridge/backend/internal/models"
	"github.com/everweb-bridge/backend/internal/retry"
)

// Lister fetches schedules from the provider in a single attempt.
type Lister interface {
	ListSchedules(ctx context.Context) ([]models.ScheduleEntry, error)
}

// Service wraps a Lister with the retry policy.
type Service struct {
	lister Lister
	policy retry.Policy
	logger *zap.Logger
}

// NewService creates a schedule lookup service. Malformed provider responses
// are not retried.
func NewService(lister Lister, policy retry.Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.Logger == nil {
		policy.Logger = logger
	}
	policy = policy.WithPermanent(func(err error) bool {
		return errors.Is(err, everwebinar.ErrMalformedResponse)
	})
	return &Service{lister: lister, policy: policy, logger: logger}
}

// List returns the schedules in provider order.
func (s *Service) List(ctx context.Context) ([]models.ScheduleEntry, error) {
	return retry.Do(ctx, s.policy, s.lister.ListSchedules)
}
