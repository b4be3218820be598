package campaign

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ifuryst/lol"
	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/common/errorx"
	"github.com/syncwave/crm/internal/template"
	"go.uber.org/zap"
)

// MessageInput carries the editable message fields. A nil ContactIDs
// keeps the current recipients on update.
type MessageInput struct {
	CompanyID          string                 `json:"companyId"`
	Name               string                 `json:"name"`
	CampaignID         string                 `json:"campaignId"`
	ContactIDs         []string               `json:"contactIds"`
	ScheduledAt        *time.Time             `json:"scheduledAt"`
	SendTimeoutSeconds *int                   `json:"sendTimeoutSeconds"`
	Status             database.MessageStatus `json:"status"`
}

func (in *MessageInput) apply(m *database.Message) {
	m.Name = strings.TrimSpace(in.Name)
	if in.CampaignID != "" {
		m.CampaignID = in.CampaignID
	}
	m.ScheduledAt = in.ScheduledAt
	if in.SendTimeoutSeconds != nil {
		m.SendTimeoutSeconds = *in.SendTimeoutSeconds
	}
	if in.Status != "" {
		m.Status = in.Status
	}
}

// validateMessage checks the fields and that the campaign belongs to the
// message's company
func (s *Service) validateMessage(ctx context.Context, m *database.Message) error {
	if m.Name == "" {
		return errorx.Validation("name", errorx.MsgFieldRequired)
	}
	if utf8.RuneCountInString(m.Name) > 150 {
		return errorx.Validation("name", errorx.MsgFieldInvalid)
	}
	if m.Status != database.MessageDraft && m.Status != database.MessagePending {
		return errorx.Validation("status", errorx.MsgFieldInvalid)
	}
	if m.SendTimeoutSeconds < 0 || m.SendTimeoutSeconds > MaxSendTimeoutSeconds {
		return errorx.Validation("sendTimeoutSeconds", errorx.MsgFieldInvalid)
	}
	if m.CampaignID == "" {
		return errorx.Validation("campaignId", errorx.MsgFieldRequired)
	}

	campaign, err := s.db.GetCampaign(ctx, access.OnlyCompanies(m.CompanyID), m.CampaignID)
	if err != nil {
		if errors.Is(err, errorx.ErrNotFound) {
			return errorx.Validation("campaignId", errorx.MsgCampaignForeign)
		}
		return err
	}
	m.Campaign = campaign
	return nil
}

// checkRecipients rejects contacts that are missing or belong to another company
func (s *Service) checkRecipients(ctx context.Context, companyID string, ids []string) ([]database.Contact, error) {
	ids = lol.UniqSlice(ids)
	contacts, err := s.db.GetContactsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[string]struct{}, len(contacts))
	out := make([]database.Contact, 0, len(contacts))
	for _, c := range contacts {
		if c.CompanyID != companyID {
			return nil, errorx.Validation("contactIds", errorx.MsgContactForeignCompany)
		}
		found[c.ID] = struct{}{}
		out = append(out, *c)
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return nil, errorx.Validation("contactIds", errorx.MsgContactForeignCompany)
		}
	}
	return out, nil
}

// CreateMessage creates a draft (or pending) dispatch of a campaign
func (s *Service) CreateMessage(ctx context.Context, p *access.Principal, in MessageInput) (*database.Message, error) {
	message := &database.Message{
		CompanyID:          access.OwnerCompany(p, in.CompanyID),
		Status:             database.MessageDraft,
		SendTimeoutSeconds: DefaultSendTimeoutSeconds,
	}
	if p != nil {
		message.CreatedByID = p.UserID
	}
	in.apply(message)
	if err := s.policy.AuthorizeWrite(ctx, p, message.CompanyID); err != nil {
		return nil, err
	}
	if err := s.validateMessage(ctx, message); err != nil {
		return nil, err
	}
	contacts, err := s.checkRecipients(ctx, message.CompanyID, in.ContactIDs)
	if err != nil {
		return nil, err
	}
	message.Contacts = contacts

	if err := s.db.CreateMessage(ctx, message); err != nil {
		return nil, err
	}
	s.logger.Info("message created",
		zap.String("message_id", message.ID),
		zap.String("campaign_id", message.CampaignID),
		zap.Int("total_contacts", message.TotalContacts),
		zap.String("by", p.Username))
	return message, nil
}

// GetMessage returns a message visible to the principal
func (s *Service) GetMessage(ctx context.Context, p *access.Principal, id string) (*database.Message, error) {
	scope, err := s.policy.Scope(ctx, p, true)
	if err != nil {
		return nil, err
	}
	return s.db.GetMessage(ctx, scope, id)
}

// writableMessage loads a message for mutation, refusing locked states
func (s *Service) writableMessage(ctx context.Context, p *access.Principal, id, lockedMsg string) (*database.Message, error) {
	message, err := s.GetMessage(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.AuthorizeWrite(ctx, p, message.CompanyID); err != nil {
		return nil, err
	}
	if message.Status.Locked() {
		return nil, errorx.InvalidState(lockedMsg).WithParam("Status", string(message.Status))
	}
	return message, nil
}

// UpdateMessage edits a message that is not sending or sent
func (s *Service) UpdateMessage(ctx context.Context, p *access.Principal, id string, in MessageInput) (*database.Message, error) {
	message, err := s.writableMessage(ctx, p, id, errorx.MsgMessageNotEditable)
	if err != nil {
		return nil, err
	}
	previous := message.Status
	in.apply(message)
	if in.Status == "" && (previous == database.MessageError || previous == database.MessageCancelled) {
		message.Status = database.MessageDraft
	}
	if err := s.validateMessage(ctx, message); err != nil {
		return nil, err
	}

	var contactIDs []string
	if in.ContactIDs != nil {
		contacts, err := s.checkRecipients(ctx, message.CompanyID, in.ContactIDs)
		if err != nil {
			return nil, err
		}
		for _, c := range contacts {
			contactIDs = append(contactIDs, c.ID)
		}
	}

	err = s.db.Transaction(ctx, func(ctx context.Context) error {
		// The status guard keeps a concurrent send from being overwritten.
		ok, err := s.db.TransitionMessage(ctx, message.ID,
			[]database.MessageStatus{previous}, message.Status, nil)
		if err != nil {
			return err
		}
		if !ok {
			return errorx.InvalidState(errorx.MsgMessageNotEditable)
		}
		if err := s.db.UpdateMessage(ctx, message); err != nil {
			return err
		}
		if in.ContactIDs == nil {
			return nil
		}
		return s.db.SetMessageRecipients(ctx, message.ID, contactIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.db.GetMessage(ctx, access.AllCompanies(), message.ID)
}

// DeleteMessage removes a message that is not sending or sent, with its logs
func (s *Service) DeleteMessage(ctx context.Context, p *access.Principal, id string) error {
	message, err := s.writableMessage(ctx, p, id, errorx.MsgMessageNotDeletable)
	if err != nil {
		return err
	}
	return s.db.Transaction(ctx, func(ctx context.Context) error {
		current, err := s.db.GetMessage(ctx, access.AllCompanies(), message.ID)
		if err != nil {
			return err
		}
		if current.Status.Locked() {
			return errorx.InvalidState(errorx.MsgMessageNotDeletable).WithParam("Status", string(current.Status))
		}
		return s.db.DeleteMessage(ctx, message.ID)
	})
}

// CancelMessage cancels a message that has not started or finished sending
func (s *Service) CancelMessage(ctx context.Context, p *access.Principal, id string) (*database.Message, error) {
	message, err := s.writableMessage(ctx, p, id, errorx.MsgMessageCannotCancel)
	if err != nil {
		return nil, err
	}
	ok, err := s.db.TransitionMessage(ctx, message.ID, []database.MessageStatus{
		database.MessageDraft, database.MessagePending, database.MessageError, database.MessageCancelled,
	}, database.MessageCancelled, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errorx.InvalidState(errorx.MsgMessageCannotCancel)
	}
	s.logger.Info("message cancelled", zap.String("message_id", message.ID), zap.String("by", p.Username))
	return s.db.GetMessage(ctx, access.AllCompanies(), message.ID)
}

// ListMessages lists visible messages
func (s *Service) ListMessages(ctx context.Context, p *access.Principal, filter database.MessageFilter, includeShared bool) ([]*database.Message, error) {
	scope, err := s.policy.Scope(ctx, p, includeShared)
	if err != nil {
		return nil, err
	}
	return s.db.ListMessages(ctx, scope, filter)
}

// Recipients lists the contacts of a message in send order
func (s *Service) Recipients(ctx context.Context, p *access.Principal, id string) ([]*database.Contact, error) {
	message, err := s.GetMessage(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.db.MessageRecipients(ctx, message.ID)
}

// Logs lists the per-recipient outcomes of a message
func (s *Service) Logs(ctx context.Context, p *access.Principal, id string, filter database.LogFilter) ([]*database.MessageLog, error) {
	message, err := s.GetMessage(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.db.ListMessageLogs(ctx, message.ID, filter)
}

// PreviewMessage renders the text the first recipient will receive, or the
// generic campaign preview when the message has no recipients
func (s *Service) PreviewMessage(ctx context.Context, p *access.Principal, id string) (string, error) {
	message, err := s.GetMessage(ctx, p, id)
	if err != nil {
		return "", err
	}
	if message.Campaign == nil {
		return "", errorx.NotFound("campaign")
	}
	recipients, err := s.db.MessageRecipients(ctx, message.ID)
	if err != nil {
		return "", err
	}
	if len(recipients) == 0 {
		return template.Preview(message.Campaign.Text), nil
	}
	return template.Render(message.Campaign.Text, recipients[0].Name), nil
}

// Stats summarizes the data the principal can see
func (s *Service) Stats(ctx context.Context, p *access.Principal, includeShared bool) (*database.Stats, error) {
	scope, err := s.policy.Scope(ctx, p, includeShared)
	if err != nil {
		return nil, err
	}
	return s.db.Stats(ctx, scope)
}
