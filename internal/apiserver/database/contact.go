package database

import (
	"context"

	"github.com/syncwave/crm/internal/access"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *store) CreateTag(ctx context.Context, tag *Tag) error {
	return translateError(getDBFromContext(ctx, s.db).Create(tag).Error, "tag")
}

func (s *store) GetTag(ctx context.Context, scope access.Scope, id string) (*Tag, error) {
	var tag Tag
	q := applyScope(getDBFromContext(ctx, s.db).Where("id = ?", id), scope, "company_id")
	if err := q.First(&tag).Error; err != nil {
		return nil, translateError(err, "tag")
	}
	return &tag, nil
}

func (s *store) GetTagByName(ctx context.Context, companyID, name string) (*Tag, error) {
	var tag Tag
	err := getDBFromContext(ctx, s.db).Where("company_id = ? AND name = ?", companyID, name).First(&tag).Error
	if err != nil {
		return nil, translateError(err, "tag")
	}
	return &tag, nil
}

func (s *store) GetTagsByIDs(ctx context.Context, ids []string) ([]*Tag, error) {
	var tags []*Tag
	if len(ids) == 0 {
		return tags, nil
	}
	err := getDBFromContext(ctx, s.db).Where("id IN ?", ids).Order("name asc").Find(&tags).Error
	return tags, err
}

func (s *store) UpdateTag(ctx context.Context, tag *Tag) error {
	return translateError(getDBFromContext(ctx, s.db).Save(tag).Error, "tag")
}

func (s *store) DeleteTag(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", id).Delete(&ContactTag{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Tag{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return translateError(gorm.ErrRecordNotFound, "tag")
		}
		return nil
	})
}

func (s *store) ListTags(ctx context.Context, scope access.Scope, filter TagFilter) ([]*Tag, error) {
	q := applyScope(getDBFromContext(ctx, s.db).Model(&Tag{}), scope, "company_id")
	if filter.CompanyID != "" {
		q = q.Where("company_id = ?", filter.CompanyID)
	}
	if filter.Search != "" {
		q = q.Where("LOWER(name) LIKE ?", likePattern(filter.Search))
	}
	var tags []*Tag
	if err := q.Order("name asc").Find(&tags).Error; err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return tags, nil
	}

	ids := make([]string, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
	}
	var rows []countRow
	err := getDBFromContext(ctx, s.db).Model(&ContactTag{}).
		Select("tag_id AS name, COUNT(*) AS count").
		Where("tag_id IN ?", ids).
		Group("tag_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Name] = r.Count
	}
	for _, t := range tags {
		t.ContactCount = counts[t.ID]
	}
	return tags, nil
}

func linkTags(tx *gorm.DB, contactID string, tags []Tag) error {
	if len(tags) == 0 {
		return nil
	}
	rows := make([]ContactTag, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		rows = append(rows, ContactTag{ContactID: contactID, TagID: t.ID})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (s *store) CreateContact(ctx context.Context, contact *Contact) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(contact).Error; err != nil {
			return translateError(err, "contact")
		}
		return linkTags(tx, contact.ID, contact.Tags)
	})
}

func (s *store) GetContact(ctx context.Context, scope access.Scope, id string) (*Contact, error) {
	var contact Contact
	q := applyScope(getDBFromContext(ctx, s.db).Where("id = ?", id), scope, "company_id")
	err := q.Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("name asc") }).First(&contact).Error
	if err != nil {
		return nil, translateError(err, "contact")
	}
	return &contact, nil
}

func (s *store) GetContactByPhone(ctx context.Context, companyID, phone string) (*Contact, error) {
	var contact Contact
	err := getDBFromContext(ctx, s.db).Where("company_id = ? AND phone = ?", companyID, phone).First(&contact).Error
	if err != nil {
		return nil, translateError(err, "contact")
	}
	return &contact, nil
}

func (s *store) GetContactsByIDs(ctx context.Context, ids []string) ([]*Contact, error) {
	var contacts []*Contact
	if len(ids) == 0 {
		return contacts, nil
	}
	err := getDBFromContext(ctx, s.db).Where("id IN ?", ids).Order("created_at asc, id asc").Find(&contacts).Error
	return contacts, err
}

func (s *store) UpdateContact(ctx context.Context, contact *Contact) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(contact).Error; err != nil {
			return translateError(err, "contact")
		}
		if err := tx.Where("contact_id = ?", contact.ID).Delete(&ContactTag{}).Error; err != nil {
			return err
		}
		return linkTags(tx, contact.ID, contact.Tags)
	})
}

// DeleteContact removes the contact and its links; message logs keep their snapshot
func (s *store) DeleteContact(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("contact_id = ?", id).Delete(&ContactTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("contact_id = ?", id).Delete(&MessageContact{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Contact{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return translateError(gorm.ErrRecordNotFound, "contact")
		}
		return nil
	})
}

func (s *store) contactQuery(ctx context.Context, scope access.Scope, filter ContactFilter) *gorm.DB {
	db := getDBFromContext(ctx, s.db)
	q := applyScope(db.Model(&Contact{}), scope, "company_id")
	if filter.CompanyID != "" {
		q = q.Where("company_id = ?", filter.CompanyID)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Where("LOWER(name) LIKE ? OR phone LIKE ? OR LOWER(email) LIKE ?", p, p, p)
	}
	if filter.Active != nil {
		q = q.Where("is_active = ?", *filter.Active)
	}
	if filter.TagID != "" {
		q = q.Where("id IN (?)", db.Model(&ContactTag{}).Select("contact_id").Where("tag_id = ?", filter.TagID))
	}
	return q
}

func (s *store) ListContacts(ctx context.Context, scope access.Scope, filter ContactFilter) ([]*Contact, int64, error) {
	var total int64
	if err := s.contactQuery(ctx, scope, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var contacts []*Contact
	q := applyPage(s.contactQuery(ctx, scope, filter), filter.Page)
	err := q.Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("name asc") }).
		Order("name asc, id asc").
		Find(&contacts).Error
	return contacts, total, err
}

func (s *store) AttachTag(ctx context.Context, contactID, tagID string) error {
	return linkTags(getDBFromContext(ctx, s.db), contactID, []Tag{{ID: tagID}})
}

func (s *store) DetachTag(ctx context.Context, contactID, tagID string) error {
	return getDBFromContext(ctx, s.db).
		Where("contact_id = ? AND tag_id = ?", contactID, tagID).
		Delete(&ContactTag{}).Error
}
