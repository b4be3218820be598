// Package campaign manages campaign templates and the messages that
// dispatch them to contacts.
package campaign

import (
	"time"

	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
	"go.uber.org/zap"
)

// DefaultSendTimeoutSeconds is the pause between two sends of a message
const DefaultSendTimeoutSeconds = 2

// MaxSendTimeoutSeconds bounds the pause between two sends
const MaxSendTimeoutSeconds = 300

// Service implements campaign and message operations on behalf of a principal
type Service struct {
	db     database.Database
	policy *access.Policy
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a campaign service
func NewService(db database.Database, policy *access.Policy, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		policy: policy,
		logger: logger.Named("campaign"),
		now:    time.Now,
	}
}
