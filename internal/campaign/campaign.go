package campaign

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/common/errorx"
	"github.com/syncwave/crm/internal/template"
	"go.uber.org/zap"
)

// CampaignInput carries the editable campaign fields
type CampaignInput struct {
	CompanyID string `json:"companyId"`
	Name      string `json:"name"`
	Text      string `json:"text"`
	IsActive  *bool  `json:"isActive"`
}

func (in *CampaignInput) apply(c *database.Campaign) {
	c.Name = strings.TrimSpace(in.Name)
	c.Text = in.Text
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}

func validateCampaign(c *database.Campaign) error {
	if c.Name == "" {
		return errorx.Validation("name", errorx.MsgFieldRequired)
	}
	if utf8.RuneCountInString(c.Name) > 100 {
		return errorx.Validation("name", errorx.MsgFieldInvalid)
	}
	if strings.TrimSpace(c.Text) == "" {
		return errorx.Validation("text", errorx.MsgFieldRequired)
	}
	return nil
}

func translateNameConflict(err error) error {
	if errors.Is(err, errorx.ErrConflict) {
		return errorx.Validation("name", errorx.MsgCampaignNameExists)
	}
	return err
}

// CreateCampaign creates a campaign in the principal's company or the requested one
func (s *Service) CreateCampaign(ctx context.Context, p *access.Principal, in CampaignInput) (*database.Campaign, error) {
	campaign := &database.Campaign{
		CompanyID: access.OwnerCompany(p, in.CompanyID),
		IsActive:  true,
	}
	if p != nil {
		campaign.CreatedByID = p.UserID
	}
	in.apply(campaign)
	if err := s.policy.AuthorizeWrite(ctx, p, campaign.CompanyID); err != nil {
		return nil, err
	}
	if err := validateCampaign(campaign); err != nil {
		return nil, err
	}
	if err := s.db.CreateCampaign(ctx, campaign); err != nil {
		return nil, translateNameConflict(err)
	}
	s.logger.Info("campaign created",
		zap.String("campaign_id", campaign.ID),
		zap.String("company_id", campaign.CompanyID),
		zap.String("by", p.Username))
	return campaign, nil
}

// GetCampaign returns a campaign visible to the principal
func (s *Service) GetCampaign(ctx context.Context, p *access.Principal, id string) (*database.Campaign, error) {
	scope, err := s.policy.Scope(ctx, p, true)
	if err != nil {
		return nil, err
	}
	return s.db.GetCampaign(ctx, scope, id)
}

// UpdateCampaign edits the campaign; messages already sent keep their logged text
func (s *Service) UpdateCampaign(ctx context.Context, p *access.Principal, id string, in CampaignInput) (*database.Campaign, error) {
	campaign, err := s.GetCampaign(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.AuthorizeWrite(ctx, p, campaign.CompanyID); err != nil {
		return nil, err
	}
	in.apply(campaign)
	if err := validateCampaign(campaign); err != nil {
		return nil, err
	}
	if err := s.db.UpdateCampaign(ctx, campaign); err != nil {
		return nil, translateNameConflict(err)
	}
	return campaign, nil
}

// DeleteCampaign removes a campaign with its unsent messages. Campaigns with a
// sending or sent message keep their history and cannot be deleted.
func (s *Service) DeleteCampaign(ctx context.Context, p *access.Principal, id string) error {
	campaign, err := s.GetCampaign(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.policy.AuthorizeWrite(ctx, p, campaign.CompanyID); err != nil {
		return err
	}
	return s.db.Transaction(ctx, func(ctx context.Context) error {
		n, err := s.db.CountCampaignMessages(ctx, campaign.ID, database.MessageSending, database.MessageSent)
		if err != nil {
			return err
		}
		if n > 0 {
			return errorx.InvalidState(errorx.MsgCampaignNotDeletable)
		}
		return s.db.DeleteCampaign(ctx, campaign.ID)
	})
}

// ListCampaigns lists visible campaigns
func (s *Service) ListCampaigns(ctx context.Context, p *access.Principal, filter database.CampaignFilter, includeShared bool) ([]*database.Campaign, error) {
	scope, err := s.policy.Scope(ctx, p, includeShared)
	if err != nil {
		return nil, err
	}
	return s.db.ListCampaigns(ctx, scope, filter)
}

// PreviewCampaign renders the campaign text with a placeholder contact name
func (s *Service) PreviewCampaign(ctx context.Context, p *access.Principal, id string) (string, error) {
	campaign, err := s.GetCampaign(ctx, p, id)
	if err != nil {
		return "", err
	}
	return template.Preview(campaign.Text), nil
}
