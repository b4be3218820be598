package campaign

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/common/config"
	"github.com/syncwave/crm/internal/common/errorx"
	"go.uber.org/zap"
)

type fixture struct {
	svc    *Service
	db     database.Database
	acme   *access.Principal
	globex *access.Principal
	viewer *access.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewSQLite(&config.DatabaseConfig{Type: "sqlite", DBName: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	acme := &database.Company{Name: "Acme", Slug: "acme", Type: access.CompanyClient, IsActive: true}
	globex := &database.Company{Name: "Globex", Slug: "globex", Type: access.CompanyClient, IsActive: true}
	require.NoError(t, db.CreateCompany(ctx, acme))
	require.NoError(t, db.CreateCompany(ctx, globex))

	return &fixture{
		svc:    NewService(db, access.NewPolicy(db), zap.NewNop()),
		db:     db,
		acme:   &access.Principal{UserID: "u1", Username: "ana", CompanyID: acme.ID, CompanyType: access.CompanyClient, Role: access.RoleManager},
		globex: &access.Principal{UserID: "u2", Username: "gil", CompanyID: globex.ID, CompanyType: access.CompanyClient, Role: access.RoleManager},
		viewer: &access.Principal{UserID: "u3", Username: "vic", CompanyID: acme.ID, CompanyType: access.CompanyClient, Role: access.RoleViewer},
	}
}

func (f *fixture) contact(t *testing.T, companyID, name, phone string) *database.Contact {
	t.Helper()
	c := &database.Contact{CompanyID: companyID, Name: name, Phone: phone, IsActive: true}
	require.NoError(t, f.db.CreateContact(context.Background(), c))
	return c
}

func messageID(err error) string {
	if e := errorx.As(err); e != nil {
		return e.MessageID
	}
	return ""
}

func TestCampaigns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.CreateCampaign(ctx, f.acme, CampaignInput{Name: " Black Friday ", Text: "Oi {{nome}}, 50% off!"})
	require.NoError(t, err)
	assert.Equal(t, "Black Friday", c.Name)
	assert.True(t, c.IsActive)
	assert.Equal(t, f.acme.UserID, c.CreatedByID)

	_, err = f.svc.CreateCampaign(ctx, f.acme, CampaignInput{Name: "Black Friday", Text: "x"})
	assert.Equal(t, errorx.MsgCampaignNameExists, messageID(err))

	_, err = f.svc.CreateCampaign(ctx, f.globex, CampaignInput{Name: "Black Friday", Text: "x"})
	require.NoError(t, err)

	_, err = f.svc.CreateCampaign(ctx, f.acme, CampaignInput{Name: "Empty", Text: "  "})
	assert.Equal(t, errorx.MsgFieldRequired, messageID(err))

	_, err = f.svc.CreateCampaign(ctx, f.viewer, CampaignInput{Name: "Nope", Text: "x"})
	assert.Equal(t, errorx.MsgReadOnlyRole, messageID(err))

	preview, err := f.svc.PreviewCampaign(ctx, f.acme, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oi [NOME DO CONTATO], 50% off!", preview)

	_, err = f.svc.GetCampaign(ctx, f.globex, c.ID)
	assert.True(t, errors.Is(err, errorx.ErrNotFound))

	inactive := false
	updated, err := f.svc.UpdateCampaign(ctx, f.acme, c.ID, CampaignInput{Name: "BF", Text: "Oi {{ nome }}", IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	list, err := f.svc.ListCampaigns(ctx, f.acme, database.CampaignFilter{ActiveOnly: true}, false)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = f.svc.ListCampaigns(ctx, f.acme, database.CampaignFilter{}, false)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDeleteCampaign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.CreateCampaign(ctx, f.acme, CampaignInput{Name: "Promo", Text: "Oi {{nome}}"})
	require.NoError(t, err)
	ana := f.contact(t, f.acme.CompanyID, "ANA", "+5511911111111")
	m, err := f.svc.CreateMessage(ctx, f.acme, MessageInput{Name: "Lote 1", CampaignID: c.ID, ContactIDs: []string{ana.ID}})
	require.NoError(t, err)

	ok, err := f.db.TransitionMessage(ctx, m.ID, []database.MessageStatus{database.MessageDraft}, database.MessageSending, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, errors.Is(f.svc.DeleteCampaign(ctx, f.acme, c.ID), errorx.ErrInvalidState))

	ok, err = f.db.TransitionMessage(ctx, m.ID, []database.MessageStatus{database.MessageSending}, database.MessageSent, nil)
	require.NoError(t, err)
	require.True(t, ok)
	_, _, err = f.db.GetOrCreateMessageLog(ctx, &database.MessageLog{MessageID: m.ID, ContactID: ana.ID, Phone: ana.Phone, Text: "Oi ANA", Status: database.LogSent})
	require.NoError(t, err)

	err = f.svc.DeleteCampaign(ctx, f.acme, c.ID)
	assert.True(t, errors.Is(err, errorx.ErrInvalidState))
	assert.Equal(t, errorx.MsgCampaignNotDeletable, errorx.As(err).MessageID)
	_, err = f.db.GetMessage(ctx, access.AllCompanies(), m.ID)
	require.NoError(t, err)
	logs, err := f.db.ListMessageLogs(ctx, m.ID, database.LogFilter{})
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	drafts, err := f.svc.CreateCampaign(ctx, f.acme, CampaignInput{Name: "Rascunho", Text: "Oi"})
	require.NoError(t, err)
	d, err := f.svc.CreateMessage(ctx, f.acme, MessageInput{Name: "Lote 2", CampaignID: drafts.ID, ContactIDs: []string{ana.ID}})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteCampaign(ctx, f.acme, drafts.ID))
	_, err = f.db.GetMessage(ctx, access.AllCompanies(), d.ID)
	assert.True(t, errors.Is(err, errorx.ErrNotFound))
}

func TestMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.CreateCampaign(ctx, f.acme, CampaignInput{Name: "Promo", Text: "Oi {{nome}}"})
	require.NoError(t, err)
	foreignCampaign, err := f.svc.CreateCampaign(ctx, f.globex, CampaignInput{Name: "Promo", Text: "x"})
	require.NoError(t, err)

	bia := f.contact(t, f.acme.CompanyID, "BIA", "+5511922222222")
	ana := f.contact(t, f.acme.CompanyID, "ANA", "+5511911111111")
	gil := f.contact(t, f.globex.CompanyID, "GIL", "+5511933333333")

	m, err := f.svc.CreateMessage(ctx, f.acme, MessageInput{Name: "Lote 1", CampaignID: c.ID, ContactIDs: []string{bia.ID, ana.ID, bia.ID}})
	require.NoError(t, err)
	assert.Equal(t, database.MessageDraft, m.Status)
	assert.Equal(t, 2, m.TotalContacts)
	assert.Equal(t, DefaultSendTimeoutSeconds, m.SendTimeoutSeconds)

	_, err = f.svc.CreateMessage(ctx, f.acme, MessageInput{Name: "x", CampaignID: foreignCampaign.ID})
	assert.Equal(t, errorx.MsgCampaignForeign, messageID(err))

	_, err = f.svc.CreateMessage(ctx, f.acme, MessageInput{Name: "x", CampaignID: c.ID, ContactIDs: []string{gil.ID}})
	assert.Equal(t, errorx.MsgContactForeignCompany, messageID(err))

	_, err = f.svc.CreateMessage(ctx, f.acme, MessageInput{Name: "x", CampaignID: c.ID, Status: database.MessageSent})
	assert.True(t, errors.Is(err, errorx.ErrValidation))

	negative := -1
	_, err = f.svc.CreateMessage(ctx, f.acme, MessageInput{Name: "x", CampaignID: c.ID, SendTimeoutSeconds: &negative})
	assert.True(t, errors.Is(err, errorx.ErrValidation))

	recipients, err := f.svc.Recipients(ctx, f.acme, m.ID)
	require.NoError(t, err)
	require.Len(t, recipients, 2)
	assert.Equal(t, bia.ID, recipients[0].ID)

	preview, err := f.svc.PreviewMessage(ctx, f.acme, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oi BIA", preview)

	when := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	updated, err := f.svc.UpdateMessage(ctx, f.acme, m.ID, MessageInput{Name: "Lote 1b", ContactIDs: []string{ana.ID}, ScheduledAt: &when, Status: database.MessagePending})
	require.NoError(t, err)
	assert.Equal(t, "Lote 1b", updated.Name)
	assert.Equal(t, 1, updated.TotalContacts)
	assert.Equal(t, database.MessagePending, updated.Status)
	require.NotNil(t, updated.ScheduledAt)

	empty, err := f.svc.CreateMessage(ctx, f.acme, MessageInput{Name: "Vazio", CampaignID: c.ID})
	require.NoError(t, err)
	preview, err = f.svc.PreviewMessage(ctx, f.acme, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oi [NOME DO CONTATO]", preview)

	list, err := f.svc.ListMessages(ctx, f.acme, database.MessageFilter{Status: database.MessagePending}, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, m.ID, list[0].ID)

	_, err = f.svc.GetMessage(ctx, f.globex, m.ID)
	assert.True(t, errors.Is(err, errorx.ErrNotFound))
}

func TestMessageLockedStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.CreateCampaign(ctx, f.acme, CampaignInput{Name: "Promo", Text: "Oi {{nome}}"})
	require.NoError(t, err)
	ana := f.contact(t, f.acme.CompanyID, "ANA", "+5511911111111")
	m, err := f.svc.CreateMessage(ctx, f.acme, MessageInput{Name: "Lote", CampaignID: c.ID, ContactIDs: []string{ana.ID}})
	require.NoError(t, err)

	for _, status := range []database.MessageStatus{database.MessageSending, database.MessageSent} {
		t.Run(string(status), func(t *testing.T) {
			ok, err := f.db.TransitionMessage(ctx, m.ID, []database.MessageStatus{database.MessageDraft, database.MessageSending}, status, nil)
			require.NoError(t, err)
			require.True(t, ok)

			_, err = f.svc.UpdateMessage(ctx, f.acme, m.ID, MessageInput{Name: "changed"})
			assert.Equal(t, errorx.MsgMessageNotEditable, messageID(err))
			assert.True(t, errors.Is(f.svc.DeleteMessage(ctx, f.acme, m.ID), errorx.ErrInvalidState))
			_, err = f.svc.CancelMessage(ctx, f.acme, m.ID)
			assert.Equal(t, errorx.MsgMessageCannotCancel, messageID(err))

			got, err := f.db.GetMessage(ctx, access.AllCompanies(), m.ID)
			require.NoError(t, err)
			assert.Equal(t, status, got.Status)
			assert.Equal(t, "Lote", got.Name)
		})
	}
}

func TestCancelAndDeleteMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.CreateCampaign(ctx, f.acme, CampaignInput{Name: "Promo", Text: "Oi {{nome}}"})
	require.NoError(t, err)
	m, err := f.svc.CreateMessage(ctx, f.acme, MessageInput{Name: "Lote", CampaignID: c.ID, Status: database.MessagePending})
	require.NoError(t, err)

	_, err = f.svc.CancelMessage(ctx, f.viewer, m.ID)
	assert.Equal(t, errorx.MsgReadOnlyRole, messageID(err))

	cancelled, err := f.svc.CancelMessage(ctx, f.acme, m.ID)
	require.NoError(t, err)
	assert.Equal(t, database.MessageCancelled, cancelled.Status)

	reopened, err := f.svc.UpdateMessage(ctx, f.acme, m.ID, MessageInput{Name: "Lote"})
	require.NoError(t, err)
	assert.Equal(t, database.MessageDraft, reopened.Status)

	require.NoError(t, f.svc.DeleteMessage(ctx, f.acme, m.ID))
	_, err = f.svc.GetMessage(ctx, f.acme, m.ID)
	assert.True(t, errors.Is(err, errorx.ErrNotFound))
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.CreateCampaign(ctx, f.acme, CampaignInput{Name: "Promo", Text: "Oi {{nome}}"})
	require.NoError(t, err)
	f.contact(t, f.acme.CompanyID, "ANA", "+5511911111111")
	f.contact(t, f.globex.CompanyID, "GIL", "+5511933333333")
	_, err = f.svc.CreateMessage(ctx, f.acme, MessageInput{Name: "Lote", CampaignID: c.ID})
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, f.acme, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalContacts)
	assert.Equal(t, int64(1), stats.TotalCampaigns)
	assert.Equal(t, int64(1), stats.TotalMessages)
	assert.Equal(t, int64(1), stats.MessagesByStatus[database.MessageDraft])
}
