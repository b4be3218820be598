package database

import (
	"context"

	"github.com/syncwave/crm/internal/access"
	"gorm.io/gorm"
)

func (s *store) CreateCampaign(ctx context.Context, campaign *Campaign) error {
	return translateError(getDBFromContext(ctx, s.db).Create(campaign).Error, "campaign")
}

func (s *store) GetCampaign(ctx context.Context, scope access.Scope, id string) (*Campaign, error) {
	var campaign Campaign
	q := applyScope(getDBFromContext(ctx, s.db).Where("id = ?", id), scope, "company_id")
	if err := q.First(&campaign).Error; err != nil {
		return nil, translateError(err, "campaign")
	}
	return &campaign, nil
}

func (s *store) UpdateCampaign(ctx context.Context, campaign *Campaign) error {
	return translateError(getDBFromContext(ctx, s.db).Save(campaign).Error, "campaign")
}

func (s *store) DeleteCampaign(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		var messageIDs []string
		if err := tx.Model(&Message{}).Where("campaign_id = ?", id).Pluck("id", &messageIDs).Error; err != nil {
			return err
		}
		if len(messageIDs) > 0 {
			if err := tx.Where("message_id IN ?", messageIDs).Delete(&MessageLog{}).Error; err != nil {
				return err
			}
			if err := tx.Where("message_id IN ?", messageIDs).Delete(&MessageContact{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", messageIDs).Delete(&Message{}).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&Campaign{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return translateError(gorm.ErrRecordNotFound, "campaign")
		}
		return nil
	})
}

func (s *store) ListCampaigns(ctx context.Context, scope access.Scope, filter CampaignFilter) ([]*Campaign, error) {
	q := applyScope(getDBFromContext(ctx, s.db).Model(&Campaign{}), scope, "company_id")
	if filter.CompanyID != "" {
		q = q.Where("company_id = ?", filter.CompanyID)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(text) LIKE ?", p, p)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	var campaigns []*Campaign
	err := q.Order("created_at desc, id asc").Find(&campaigns).Error
	return campaigns, err
}

func (s *store) CountCampaignMessages(ctx context.Context, campaignID string, statuses ...MessageStatus) (int64, error) {
	var count int64
	q := getDBFromContext(ctx, s.db).Model(&Message{}).Where("campaign_id = ?", campaignID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	err := q.Count(&count).Error
	return count, err
}
