package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/campaign"
	"github.com/syncwave/crm/internal/common/dto"
	"github.com/syncwave/crm/internal/dispatch"
	"github.com/syncwave/crm/internal/i18n"
)

// Campaigns handles campaigns, messages and their dispatch
type Campaigns struct {
	svc      *campaign.Service
	dispatch *dispatch.Orchestrator
}

// NewCampaigns creates a new campaign handler
func NewCampaigns(svc *campaign.Service, orchestrator *dispatch.Orchestrator) *Campaigns {
	return &Campaigns{svc: svc, dispatch: orchestrator}
}

// ListCampaigns handles listing campaigns
func (h *Campaigns) ListCampaigns(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	filter := database.CampaignFilter{
		CompanyID:  c.Query("companyId"),
		Search:     c.Query("search"),
		ActiveOnly: queryBool(c, "active"),
	}
	campaigns, err := h.svc.ListCampaigns(c.Request.Context(), p, filter, includeShared(c))
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewList(campaigns))
}

// CreateCampaign handles campaign creation
func (h *Campaigns) CreateCampaign(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req campaign.CampaignInput
	if !bind(c, &req) {
		return
	}
	created, err := h.svc.CreateCampaign(c.Request.Context(), p, req)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetCampaign handles getting a campaign by id
func (h *Campaigns) GetCampaign(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	found, err := h.svc.GetCampaign(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

// UpdateCampaign handles campaign updates
func (h *Campaigns) UpdateCampaign(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req campaign.CampaignInput
	if !bind(c, &req) {
		return
	}
	updated, err := h.svc.UpdateCampaign(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteCampaign handles campaign deletion
func (h *Campaigns) DeleteCampaign(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteCampaign(c.Request.Context(), p, c.Param("id")); err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	deleted(c)
}

// PreviewCampaign renders the campaign text with the preview name
func (h *Campaigns) PreviewCampaign(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	text, err := h.svc.PreviewCampaign(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PreviewResponse{Text: text})
}

// ListMessages handles listing messages
func (h *Campaigns) ListMessages(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	filter := database.MessageFilter{
		Page:       page(c),
		CompanyID:  c.Query("companyId"),
		CampaignID: c.Query("campaignId"),
		Status:     database.MessageStatus(c.Query("status")),
	}
	messages, err := h.svc.ListMessages(c.Request.Context(), p, filter, includeShared(c))
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewList(messages))
}

// CreateMessage handles message creation
func (h *Campaigns) CreateMessage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req campaign.MessageInput
	if !bind(c, &req) {
		return
	}
	message, err := h.svc.CreateMessage(c.Request.Context(), p, req)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// GetMessage handles getting a message with its recipients
func (h *Campaigns) GetMessage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	message, err := h.svc.GetMessage(ctx, p, c.Param("id"))
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	recipients, err := h.svc.Recipients(ctx, p, message.ID)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	message.Contacts = make([]database.Contact, len(recipients))
	for i, r := range recipients {
		message.Contacts[i] = *r
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      message,
		"canSend":   dispatch.CanSend(message, time.Now()),
		"isRunning": h.dispatch.Running(message.ID),
	})
}

// UpdateMessage handles message updates
func (h *Campaigns) UpdateMessage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req campaign.MessageInput
	if !bind(c, &req) {
		return
	}
	message, err := h.svc.UpdateMessage(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, message)
}

// DeleteMessage handles message deletion
func (h *Campaigns) DeleteMessage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteMessage(c.Request.Context(), p, c.Param("id")); err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	deleted(c)
}

// SendMessage starts the dispatch of a message in the background
func (h *Campaigns) SendMessage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	message, err := h.dispatch.Start(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	i18n.RespondAccepted(c, i18n.SuccessDispatchStarted, nil, gin.H{"data": message})
}

// CancelMessage cancels a message that is not being sent
func (h *Campaigns) CancelMessage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	message, err := h.svc.CancelMessage(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	i18n.RespondOK(c, i18n.SuccessMessageCancelled, nil, gin.H{"data": message})
}

// StopMessage interrupts a running dispatch
func (h *Campaigns) StopMessage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	message, err := h.dispatch.Stop(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	i18n.RespondOK(c, i18n.SuccessDispatchStopped, nil, gin.H{"data": message})
}

// RetryMessage puts a failed message back to pending and starts it when due
func (h *Campaigns) RetryMessage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	message, err := h.dispatch.Retry(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	i18n.RespondAccepted(c, i18n.SuccessRetryScheduled, nil, gin.H{"data": message})
}

// MessageLogs handles listing the per-recipient logs of a message
func (h *Campaigns) MessageLogs(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	filter := database.LogFilter{Status: database.LogStatus(c.Query("status"))}
	logs, err := h.svc.Logs(c.Request.Context(), p, c.Param("id"), filter)
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewList(logs))
}

// PreviewMessage renders the message text for its first recipient
func (h *Campaigns) PreviewMessage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	text, err := h.svc.PreviewMessage(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PreviewResponse{Text: text})
}

// Stats returns the dashboard counters of the caller's scope
func (h *Campaigns) Stats(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	stats, err := h.svc.Stats(c.Request.Context(), p, includeShared(c))
	if err != nil {
		i18n.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
