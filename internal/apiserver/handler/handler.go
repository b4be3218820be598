// Package handler exposes the CRM services over HTTP.
package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/apiserver/middleware"
	"github.com/syncwave/crm/internal/common/errorx"
	"github.com/syncwave/crm/internal/i18n"
)

const maxPageSize = 200

// principal returns the authenticated principal or writes a 401
func principal(c *gin.Context) (*access.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		i18n.RespondWithError(c, errorx.Unauthenticated(errorx.MsgUnauthorized))
		return nil, false
	}
	return p, true
}

// bind decodes the JSON body or writes a 400
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		i18n.RespondWithError(c, &errorx.Error{Kind: errorx.KindValidation, MessageID: errorx.MsgBadRequest, Err: err})
		return false
	}
	return true
}

// includeShared reports whether ?include_shared=true was given
func includeShared(c *gin.Context) bool {
	return queryBool(c, "include_shared")
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return err == nil && v
}

// queryOptionalBool parses a tri-state boolean query parameter
func queryOptionalBool(c *gin.Context, key string) *bool {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func page(c *gin.Context) database.Page {
	p, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", "0"))
	if p < 1 {
		p = 1
	}
	if size < 0 {
		size = 0
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return database.Page{Page: p, PageSize: size}
}

func deleted(c *gin.Context) {
	i18n.RespondOK(c, i18n.SuccessDeleted, nil, nil)
}
