package database

import (
	"context"

	"github.com/syncwave/crm/internal/access"
)

func (s *store) Stats(ctx context.Context, scope access.Scope) (*Stats, error) {
	db := getDBFromContext(ctx, s.db)
	stats := &Stats{MessagesByStatus: make(map[MessageStatus]int64)}

	counts := []struct {
		model  any
		active bool
		dest   *int64
	}{
		{&Contact{}, false, &stats.TotalContacts},
		{&Contact{}, true, &stats.ActiveContacts},
		{&Tag{}, false, &stats.TotalTags},
		{&Campaign{}, false, &stats.TotalCampaigns},
		{&Message{}, false, &stats.TotalMessages},
	}
	for _, c := range counts {
		q := applyScope(db.Model(c.model), scope, "company_id")
		if c.active {
			q = q.Where("is_active = ?", true)
		}
		if err := q.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	var rows []countRow
	err := applyScope(db.Model(&Message{}), scope, "company_id").
		Select("status AS name, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.MessagesByStatus[MessageStatus(r.Name)] = r.Count
	}

	inScope := applyScope(db.Model(&Message{}).Select("id"), scope, "company_id")
	if err := db.Model(&MessageLog{}).
		Where("message_id IN (?) AND status = ?", inScope, LogSent).
		Count(&stats.TotalLogsSent).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&MessageLog{}).
		Where("message_id IN (?) AND status = ?", inScope, LogError).
		Count(&stats.TotalLogsWithError).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
