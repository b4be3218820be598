package tenancy

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/common/errorx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Service manages companies, their users and cross-company grants
type Service struct {
	db       database.Database
	policy   *access.Policy
	logger   *zap.Logger
	hashCost int
	now      func() time.Time
}

// NewService creates a tenancy service
func NewService(db database.Database, policy *access.Policy, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		policy:   policy,
		logger:   logger.Named("tenancy"),
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// Principal builds the access principal for an authenticated user
func (s *Service) Principal(ctx context.Context, userID string) (*access.Principal, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errorx.ErrNotFound) {
			return nil, errorx.Unauthenticated(errorx.MsgInvalidToken)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, errorx.Unauthenticated(errorx.MsgUserDisabled)
	}
	company, err := s.db.GetCompany(ctx, access.AllCompanies(), user.CompanyID)
	if err != nil {
		return nil, err
	}
	if !company.IsActive {
		return nil, errorx.Unauthenticated(errorx.MsgCompanyInactive)
	}
	return principalOf(user, company), nil
}

func principalOf(user *database.User, company *database.Company) *access.Principal {
	return &access.Principal{
		UserID:                user.ID,
		Username:              user.Username,
		CompanyID:             user.CompanyID,
		CompanyType:           company.Type,
		Role:                  user.Role,
		Superuser:             user.IsSuperuser,
		CanAccessAllCompanies: user.CanAccessAllCompanies,
	}
}

func (s *Service) hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", errorx.Validation("password", errorx.MsgPasswordTooShort)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

var validate = validator.New()

func validEmail(email string) bool {
	return email == "" || validate.Var(email, "email") == nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return errorx.Validation(field, errorx.MsgFieldRequired)
	}
	return nil
}
