package database

import (
	"context"
	"errors"
	"time"

	"github.com/syncwave/crm/internal/access"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func linkRecipients(tx *gorm.DB, messageID string, contactIDs []string) (int, error) {
	seen := make(map[string]struct{}, len(contactIDs))
	rows := make([]MessageContact, 0, len(contactIDs))
	for _, id := range contactIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, MessageContact{MessageID: messageID, ContactID: id})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return 0, err
	}
	return len(rows), nil
}

func contactIDs(contacts []Contact) []string {
	ids := make([]string, len(contacts))
	for i, c := range contacts {
		ids[i] = c.ID
	}
	return ids
}

// CreateMessage inserts the message and links message.Contacts as recipients
func (s *store) CreateMessage(ctx context.Context, message *Message) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(message).Error; err != nil {
			return translateError(err, "message")
		}
		n, err := linkRecipients(tx, message.ID, contactIDs(message.Contacts))
		if err != nil {
			return err
		}
		message.TotalContacts = n
		return tx.Model(&Message{}).Where("id = ?", message.ID).Update("total_contacts", n).Error
	})
}

func (s *store) GetMessage(ctx context.Context, scope access.Scope, id string) (*Message, error) {
	var message Message
	q := applyScope(getDBFromContext(ctx, s.db).Where("id = ?", id), scope, "company_id")
	if err := q.Preload("Campaign").First(&message).Error; err != nil {
		return nil, translateError(err, "message")
	}
	return &message, nil
}

func (s *store) UpdateMessage(ctx context.Context, message *Message) error {
	return translateError(getDBFromContext(ctx, s.db).Omit(clause.Associations).Save(message).Error, "message")
}

func (s *store) DeleteMessage(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&MessageLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id = ?", id).Delete(&MessageContact{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Message{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return translateError(gorm.ErrRecordNotFound, "message")
		}
		return nil
	})
}

func (s *store) ListMessages(ctx context.Context, scope access.Scope, filter MessageFilter) ([]*Message, error) {
	q := applyScope(getDBFromContext(ctx, s.db).Model(&Message{}), scope, "company_id")
	if filter.CompanyID != "" {
		q = q.Where("company_id = ?", filter.CompanyID)
	}
	if filter.CampaignID != "" {
		q = q.Where("campaign_id = ?", filter.CampaignID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var messages []*Message
	err := applyPage(q, filter.Page).Preload("Campaign").Order("created_at desc, id asc").Find(&messages).Error
	return messages, err
}

func (s *store) SetMessageRecipients(ctx context.Context, messageID string, contactIDs []string) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", messageID).Delete(&MessageContact{}).Error; err != nil {
			return err
		}
		n, err := linkRecipients(tx, messageID, contactIDs)
		if err != nil {
			return err
		}
		return tx.Model(&Message{}).Where("id = ?", messageID).Update("total_contacts", n).Error
	})
}

func (s *store) MessageRecipients(ctx context.Context, messageID string) ([]*Contact, error) {
	var contacts []*Contact
	err := getDBFromContext(ctx, s.db).Model(&Contact{}).
		Joins("JOIN message_contacts ON message_contacts.contact_id = contacts.id").
		Where("message_contacts.message_id = ?", messageID).
		Order("contacts.created_at asc, contacts.id asc").
		Find(&contacts).Error
	return contacts, err
}

func (s *store) TransitionMessage(ctx context.Context, id string, from []MessageStatus, to MessageStatus, fields map[string]any) (bool, error) {
	updates := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["status"] = to

	res := getDBFromContext(ctx, s.db).Model(&Message{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *store) UpdateMessageCounters(ctx context.Context, id string, total, sent, failed int) error {
	return getDBFromContext(ctx, s.db).Model(&Message{}).Where("id = ?", id).Updates(map[string]any{
		"total_contacts": total,
		"total_sent":     sent,
		"total_errors":   failed,
	}).Error
}

// ListDueMessages returns pending messages whose schedule is unset or has passed
func (s *store) ListDueMessages(ctx context.Context, now time.Time, limit int) ([]*Message, error) {
	q := getDBFromContext(ctx, s.db).
		Where("status = ? AND total_contacts > 0", MessagePending).
		Where("scheduled_at IS NULL OR scheduled_at <= ?", now).
		Order("scheduled_at asc, created_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var messages []*Message
	err := q.Find(&messages).Error
	return messages, err
}

func (s *store) ListMessagesByStatus(ctx context.Context, status MessageStatus) ([]*Message, error) {
	var messages []*Message
	err := getDBFromContext(ctx, s.db).Where("status = ?", status).Order("created_at asc").Find(&messages).Error
	return messages, err
}

func (s *store) GetOrCreateMessageLog(ctx context.Context, log *MessageLog) (*MessageLog, bool, error) {
	db := getDBFromContext(ctx, s.db)
	find := func() (*MessageLog, error) {
		var existing MessageLog
		err := db.Where("message_id = ? AND contact_id = ?", log.MessageID, log.ContactID).First(&existing).Error
		return &existing, err
	}

	existing, err := find()
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	if err := db.Create(log).Error; err != nil {
		if !isUniqueViolation(err) {
			return nil, false, err
		}
		existing, err := find()
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return log, true, nil
}

func (s *store) UpdateMessageLog(ctx context.Context, log *MessageLog) error {
	return getDBFromContext(ctx, s.db).Save(log).Error
}

func (s *store) ListMessageLogs(ctx context.Context, messageID string, filter LogFilter) ([]*MessageLog, error) {
	q := getDBFromContext(ctx, s.db).Where("message_id = ?", messageID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var logs []*MessageLog
	err := q.Order("created_at asc, id asc").Find(&logs).Error
	return logs, err
}

// CountMessageLogsByStatus counts the logs of current recipients only; logs of
// contacts removed from the message stay listed but no longer count
func (s *store) CountMessageLogsByStatus(ctx context.Context, messageID string) (map[LogStatus]int64, error) {
	var rows []countRow
	err := getDBFromContext(ctx, s.db).Model(&MessageLog{}).
		Select("message_logs.status AS name, COUNT(*) AS count").
		Joins("JOIN message_contacts ON message_contacts.message_id = message_logs.message_id AND message_contacts.contact_id = message_logs.contact_id").
		Where("message_logs.message_id = ?", messageID).
		Group("message_logs.status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[LogStatus]int64, len(rows))
	for _, r := range rows {
		out[LogStatus(r.Name)] = r.Count
	}
	return out, nil
}
