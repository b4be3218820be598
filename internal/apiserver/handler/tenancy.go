package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/common/dto"
	"github.com/syncwave/crm/internal/i18n"
	"github.com/syncwave/crm/internal/tenancy"
)

// principalInvalidator drops cached principals after account changes
type principalInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
	Clear(ctx context.Context) error
}

// Tenancy handles companies, users and cross-company grants
type Tenancy struct {
	svc        *tenancy.Service
	principals principalInvalidator
}

// NewTenancy creates a new tenancy handler; principals may be nil
func NewTenancy(svc *tenancy.Service, principals principalInvalidator) *Tenancy {
	return &Tenancy{svc: svc, principals: principals}
}

func (h *Tenancy) forgetUser(ctx context.Context, userID string) {
	if h.principals != nil {
		_ = h.principals.Invalidate(ctx, userID)
	}
}

func (h *Tenancy) forgetAll(ctx context.Context) {
	if h.principals != nil {
		_ = h.principals.Clear(ctx)
	}
}

// ListCompanies handles listing the companies visible to the caller
func (h *Tenancy) ListCompanies(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	filter := database.CompanyFilter{
		Search:     c.Query("search"),
		ActiveOnly: queryBool(c, "active"),
	}
	companies, err := h.svc.ListCompanies(c.Request.Context(), p, filter, includeShared(c))
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewList(companies))
}

// AccessibleCompanies handles listing the active companies the caller may work with
func (h *Tenancy) AccessibleCompanies(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	companies, err := h.svc.AccessibleCompanies(c.Request.Context(), p)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewList(companies))
}

// CreateCompany handles company creation
func (h *Tenancy) CreateCompany(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req tenancy.CompanyInput
	if !bind(c, &req) {
		return
	}
	company, err := h.svc.CreateCompany(c.Request.Context(), p, req)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, company)
}

// GetCompany handles getting a company by id
func (h *Tenancy) GetCompany(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	company, err := h.svc.GetCompany(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

// UpdateCompany handles company updates
func (h *Tenancy) UpdateCompany(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req tenancy.CompanyInput
	if !bind(c, &req) {
		return
	}
	company, err := h.svc.UpdateCompany(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	h.forgetAll(c.Request.Context())
	c.JSON(http.StatusOK, company)
}

// DeleteCompany handles company deletion
func (h *Tenancy) DeleteCompany(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteCompany(c.Request.Context(), p, c.Param("id")); err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	h.forgetAll(c.Request.Context())
	deleted(c)
}

// ListUsers handles listing users
func (h *Tenancy) ListUsers(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	filter := database.UserFilter{
		CompanyID: c.Query("companyId"),
		Search:    c.Query("search"),
	}
	users, err := h.svc.ListUsers(c.Request.Context(), p, filter)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewList(users))
}

// CreateUser handles user creation
func (h *Tenancy) CreateUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req tenancy.UserInput
	if !bind(c, &req) {
		return
	}
	user, err := h.svc.CreateUser(c.Request.Context(), p, req)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// UpdateUser handles user updates
func (h *Tenancy) UpdateUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req tenancy.UserInput
	if !bind(c, &req) {
		return
	}
	user, err := h.svc.UpdateUser(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	h.forgetUser(c.Request.Context(), user.ID)
	c.JSON(http.StatusOK, user)
}

// DeleteUser handles user deletion
func (h *Tenancy) DeleteUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteUser(c.Request.Context(), p, c.Param("id")); err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	h.forgetUser(c.Request.Context(), c.Param("id"))
	deleted(c)
}

// ListGrants handles listing the grants given or received by the caller's companies
func (h *Tenancy) ListGrants(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	grants, err := h.svc.ListGrants(c.Request.Context(), p)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewList(grants))
}

// CreateGrant handles grant creation
func (h *Tenancy) CreateGrant(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req tenancy.GrantInput
	if !bind(c, &req) {
		return
	}
	grant, err := h.svc.CreateGrant(c.Request.Context(), p, req)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, grant)
}

// UpdateGrant handles grant updates
func (h *Tenancy) UpdateGrant(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req tenancy.GrantInput
	if !bind(c, &req) {
		return
	}
	grant, err := h.svc.UpdateGrant(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, grant)
}

// DeleteGrant handles grant deletion
func (h *Tenancy) DeleteGrant(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteGrant(c.Request.Context(), p, c.Param("id")); err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	deleted(c)
}
