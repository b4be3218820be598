package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/common/dto"
	"github.com/syncwave/crm/internal/common/errorx"
	"github.com/syncwave/crm/internal/crm"
	"github.com/syncwave/crm/internal/i18n"
)

const maxImportSize = 10 << 20

// CRM handles tags and contacts
type CRM struct {
	svc *crm.Service
}

// NewCRM creates a new contacts handler
func NewCRM(svc *crm.Service) *CRM {
	return &CRM{svc: svc}
}

// ListTags handles listing tags
func (h *CRM) ListTags(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	filter := database.TagFilter{
		CompanyID: c.Query("companyId"),
		Search:    c.Query("search"),
	}
	tags, err := h.svc.ListTags(c.Request.Context(), p, filter, includeShared(c))
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewList(tags))
}

// CreateTag handles tag creation
func (h *CRM) CreateTag(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req crm.TagInput
	if !bind(c, &req) {
		return
	}
	tag, err := h.svc.CreateTag(c.Request.Context(), p, req)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

// UpdateTag handles tag updates
func (h *CRM) UpdateTag(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req crm.TagInput
	if !bind(c, &req) {
		return
	}
	tag, err := h.svc.UpdateTag(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// DeleteTag handles tag deletion
func (h *CRM) DeleteTag(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteTag(c.Request.Context(), p, c.Param("id")); err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	deleted(c)
}

// ListContacts handles listing contacts with search, active and tag filters
func (h *CRM) ListContacts(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	filter := database.ContactFilter{
		Page:      page(c),
		CompanyID: c.Query("companyId"),
		Search:    c.Query("search"),
		Active:    queryOptionalBool(c, "active"),
		TagID:     c.Query("tagId"),
	}
	contacts, total, err := h.svc.ListContacts(c.Request.Context(), p, filter, includeShared(c))
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	if contacts == nil {
		contacts = []*database.Contact{}
	}
	c.JSON(http.StatusOK, dto.ListResponse[*database.Contact]{
		Items:    contacts,
		Total:    total,
		Page:     filter.Page.Page,
		PageSize: filter.PageSize,
	})
}

// CreateContact handles contact creation
func (h *CRM) CreateContact(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req crm.ContactInput
	if !bind(c, &req) {
		return
	}
	contact, err := h.svc.CreateContact(c.Request.Context(), p, req)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contact)
}

// GetContact handles getting a contact by id
func (h *CRM) GetContact(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	contact, err := h.svc.GetContact(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

// UpdateContact handles contact updates
func (h *CRM) UpdateContact(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req crm.ContactInput
	if !bind(c, &req) {
		return
	}
	contact, err := h.svc.UpdateContact(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

// DeleteContact handles contact deletion
func (h *CRM) DeleteContact(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteContact(c.Request.Context(), p, c.Param("id")); err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	deleted(c)
}

// AddContactTag attaches a tag by name, creating it when missing
func (h *CRM) AddContactTag(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.AddTagRequest
	if !bind(c, &req) {
		return
	}
	tag, err := h.svc.AddTag(c.Request.Context(), p, c.Param("id"), req.Name)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// RemoveContactTag detaches a tag from a contact
func (h *CRM) RemoveContactTag(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.svc.RemoveTag(c.Request.Context(), p, c.Param("id"), c.Param("tagId")); err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	deleted(c)
}

// ImportContacts handles a CSV upload, either as the multipart field
// "file" or as the raw request body
func (h *CRM) ImportContacts(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var src io.Reader
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			i18n.RespondWithError(c, errorx.Validation("file", errorx.MsgFieldInvalid))
			return
		}
		defer f.Close()
		src = f
	} else {
		src = c.Request.Body
	}

	companyID := c.Query("companyId")
	if companyID == "" {
		companyID = c.PostForm("companyId")
	}
	result, err := h.svc.ImportContacts(c.Request.Context(), p, companyID, io.LimitReader(src, maxImportSize))
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	for i := range result.Errors {
		if result.Errors[i].Message == "" {
			result.Errors[i].Message = i18n.TranslateMessage(c, result.Errors[i].Code, nil)
		}
	}
	i18n.RespondOK(c, i18n.SuccessImportFinished,
		map[string]any{"Created": result.Created, "Failed": result.Failed},
		gin.H{"result": result})
}

// ExportContacts streams the contacts of one company as CSV
func (h *CRM) ExportContacts(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.svc.ExportContacts(c.Request.Context(), p, c.Query("companyId"), &buf); err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	filename := fmt.Sprintf("contatos_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
