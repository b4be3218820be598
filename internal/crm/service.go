// Package crm manages the contacts and tags of each company.
package crm

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
	"go.uber.org/zap"
)

var validate = validator.New()

// Service implements contact and tag operations on behalf of a principal
type Service struct {
	db     database.Database
	policy *access.Policy
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a crm service
func NewService(db database.Database, policy *access.Policy, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		policy: policy,
		logger: logger.Named("crm"),
		now:    time.Now,
	}
}

func (s *Service) readScope(ctx context.Context, p *access.Principal, includeShared bool) (access.Scope, error) {
	return s.policy.Scope(ctx, p, includeShared)
}
