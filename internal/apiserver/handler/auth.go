package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/auth/jwt"
	"github.com/syncwave/crm/internal/common/dto"
	"github.com/syncwave/crm/internal/i18n"
	"github.com/syncwave/crm/internal/tenancy"
	"go.uber.org/zap"
)

// Auth handles login and the current user's account
type Auth struct {
	db         database.Database
	tenancy    *tenancy.Service
	jwtService *jwt.Service
	logger     *zap.Logger
}

// NewAuth creates a new authentication handler
func NewAuth(db database.Database, svc *tenancy.Service, jwtService *jwt.Service, logger *zap.Logger) *Auth {
	return &Auth{
		db:         db,
		tenancy:    svc,
		jwtService: jwtService,
		logger:     logger.Named("handler.auth"),
	}
}

// Login handles user login
func (h *Auth) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.tenancy.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}

	token, err := h.jwtService.GenerateToken(user.ID, user.Username, user.CompanyID, string(user.Role))
	if err != nil {
		h.logger.Error("failed to generate token", zap.String("user_id", user.ID), zap.Error(err))
		i18n.RespondWithError(c, err)
		return
	}

	company, err := h.db.GetCompany(c.Request.Context(), access.AllCompanies(), user.CompanyID)
	if err != nil {
		h.logger.Warn("user company not found", zap.String("user_id", user.ID), zap.Error(err))
		company = nil
	}

	h.logger.Info("user logged in", zap.String("username", user.Username))
	c.JSON(http.StatusOK, dto.LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.jwtService.Duration()),
		User:      dto.NewUserInfo(user, company),
	})
}

// Me returns the authenticated user
func (h *Auth) Me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	user, err := h.db.GetUserByID(c.Request.Context(), p.UserID)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	company, err := h.db.GetCompany(c.Request.Context(), access.AllCompanies(), user.CompanyID)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserInfo(user, company))
}

// ChangePassword handles password change requests
func (h *Auth) ChangePassword(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.ChangePasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := h.tenancy.ChangePassword(c.Request.Context(), p, req.OldPassword, req.NewPassword); err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	i18n.RespondOK(c, i18n.SuccessPasswordChanged, nil, nil)
}
