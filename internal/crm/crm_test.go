package crm

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

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
		globex: &access.Principal{UserID: "u2", Username: "gil", CompanyID: globex.ID, CompanyType: access.CompanyClient, Role: access.RoleEmployee},
		viewer: &access.Principal{UserID: "u3", Username: "vic", CompanyID: acme.ID, CompanyType: access.CompanyClient, Role: access.RoleViewer},
	}
}

func messageID(err error) string {
	if e := errorx.As(err); e != nil {
		return e.MessageID
	}
	return ""
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
	}{
		{"+55 (11) 99999-0000", "+5511999990000", true},
		{" +1.202.555.0143 ", "+12025550143", true},
		{"5511999990000", "5511999990000", false},
		{"+0123", "+0123", false},
		{"+1234567890123456", "+1234567890123456", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizePhone(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.valid, ValidPhone(got))
		})
	}
}

func TestTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	vip, err := f.svc.CreateTag(ctx, f.acme, TagInput{Name: " vip "})
	require.NoError(t, err)
	assert.Equal(t, "VIP", vip.Name)
	assert.Equal(t, DefaultTagColor, vip.Color)
	assert.Equal(t, f.acme.CompanyID, vip.CompanyID)

	_, err = f.svc.CreateTag(ctx, f.acme, TagInput{Name: "Vip"})
	assert.Equal(t, errorx.MsgTagNameExists, messageID(err))

	_, err = f.svc.CreateTag(ctx, f.acme, TagInput{Name: "lead", Color: "red"})
	assert.Equal(t, errorx.MsgInvalidColor, messageID(err))

	_, err = f.svc.CreateTag(ctx, f.viewer, TagInput{Name: "lead"})
	assert.Equal(t, errorx.MsgReadOnlyRole, messageID(err))

	_, err = f.svc.CreateTag(ctx, f.acme, TagInput{CompanyID: f.globex.CompanyID, Name: "lead"})
	assert.True(t, errors.Is(err, errorx.ErrAuthorization))

	globexVIP, err := f.svc.CreateTag(ctx, f.globex, TagInput{Name: "vip", Color: "#FF0000"})
	require.NoError(t, err)

	_, err = f.svc.GetTag(ctx, f.acme, globexVIP.ID)
	assert.True(t, errors.Is(err, errorx.ErrNotFound))

	updated, err := f.svc.UpdateTag(ctx, f.acme, vip.ID, TagInput{Name: "premium", Color: "#00ff00"})
	require.NoError(t, err)
	assert.Equal(t, "PREMIUM", updated.Name)
	assert.Equal(t, "#00ff00", updated.Color)

	tags, err := f.svc.ListTags(ctx, f.acme, database.TagFilter{}, false)
	require.NoError(t, err)
	require.Len(t, tags, 1)

	assert.NoError(t, f.svc.DeleteTag(ctx, f.acme, vip.ID))
	assert.True(t, errors.Is(f.svc.DeleteTag(ctx, f.acme, globexVIP.ID), errorx.ErrNotFound))
}

func TestContacts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	vip, err := f.svc.CreateTag(ctx, f.acme, TagInput{Name: "vip"})
	require.NoError(t, err)
	foreign, err := f.svc.CreateTag(ctx, f.globex, TagInput{Name: "vip"})
	require.NoError(t, err)

	c, err := f.svc.CreateContact(ctx, f.acme, ContactInput{Name: "maria silva", Phone: "+55 (11) 98888-7777", TagIDs: []string{vip.ID}})
	require.NoError(t, err)
	assert.Equal(t, "MARIA SILVA", c.Name)
	assert.Equal(t, "+5511988887777", c.Phone)
	assert.Equal(t, OriginManual, c.Origin)
	assert.True(t, c.IsActive)

	_, err = f.svc.CreateContact(ctx, f.acme, ContactInput{Name: "dup", Phone: "+5511988887777"})
	assert.Equal(t, errorx.MsgPhoneExists, messageID(err))

	other, err := f.svc.CreateContact(ctx, f.globex, ContactInput{Name: "same phone", Phone: "+5511988887777"})
	require.NoError(t, err)

	_, err = f.svc.CreateContact(ctx, f.acme, ContactInput{Name: "bad", Phone: "11988887777"})
	assert.Equal(t, errorx.MsgInvalidPhone, messageID(err))

	_, err = f.svc.CreateContact(ctx, f.acme, ContactInput{Name: "bad", Phone: "+5511900000000", Email: "bad@"})
	assert.Equal(t, errorx.MsgInvalidEmail, messageID(err))

	accented := strings.Repeat("ção", 50)
	long, err := f.svc.CreateContact(ctx, f.globex, ContactInput{Name: accented, Phone: "+5511900000002"})
	require.NoError(t, err)
	assert.Equal(t, strings.ToUpper(accented), long.Name)
	_, err = f.svc.CreateContact(ctx, f.globex, ContactInput{Name: accented + "a", Phone: "+5511900000003"})
	assert.Equal(t, errorx.MsgFieldInvalid, messageID(err))

	_, err = f.svc.CreateContact(ctx, f.acme, ContactInput{Name: "joao", Phone: "+5511900000001", TagIDs: []string{foreign.ID}})
	assert.Equal(t, errorx.MsgTagForeignCompany, messageID(err))

	_, err = f.svc.GetContact(ctx, f.acme, other.ID)
	assert.True(t, errors.Is(err, errorx.ErrNotFound))

	got, err := f.svc.GetContact(ctx, f.acme, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "VIP", got.Tags[0].Name)

	inactive := false
	updated, err := f.svc.UpdateContact(ctx, f.acme, c.ID, ContactInput{Name: "Maria S.", Phone: "+5511988887777", IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "MARIA S.", updated.Name)
	assert.False(t, updated.IsActive)
	assert.Empty(t, updated.Tags)

	active := true
	list, total, err := f.svc.ListContacts(ctx, f.acme, database.ContactFilter{Active: &active}, false)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)

	_, err = f.svc.UpdateContact(ctx, f.viewer, c.ID, ContactInput{Name: "x", Phone: "+5511988887777"})
	assert.Equal(t, errorx.MsgReadOnlyRole, messageID(err))

	assert.True(t, errors.Is(f.svc.DeleteContact(ctx, f.acme, other.ID), errorx.ErrNotFound))
	assert.NoError(t, f.svc.DeleteContact(ctx, f.acme, c.ID))
}

func TestAddAndRemoveTag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.CreateContact(ctx, f.acme, ContactInput{Name: "ana", Phone: "+5511911112222"})
	require.NoError(t, err)

	tag, err := f.svc.AddTag(ctx, f.acme, c.ID, "cliente novo")
	require.NoError(t, err)
	assert.Equal(t, "CLIENTE NOVO", tag.Name)

	again, err := f.svc.AddTag(ctx, f.acme, c.ID, "Cliente Novo")
	require.NoError(t, err)
	assert.Equal(t, tag.ID, again.ID)

	tags, err := f.svc.ListTags(ctx, f.acme, database.TagFilter{}, false)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, int64(1), tags[0].ContactCount)

	list, total, err := f.svc.ListContacts(ctx, f.acme, database.ContactFilter{TagID: tag.ID}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)

	require.NoError(t, f.svc.RemoveTag(ctx, f.acme, c.ID, tag.ID))
	got, err := f.svc.GetContact(ctx, f.acme, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)

	_, err = f.svc.AddTag(ctx, f.globex, c.ID, "x")
	assert.True(t, errors.Is(err, errorx.ErrNotFound))
}

func TestWriteThroughGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	grant := &database.CompanyPermission{
		OwnerCompanyID:   f.acme.CompanyID,
		GrantedCompanyID: f.globex.CompanyID,
		PermissionType:   access.PermissionRead,
		IsActive:         true,
		CreatedByID:      f.acme.UserID,
	}
	require.NoError(t, f.db.CreateGrant(ctx, grant))

	c, err := f.svc.CreateContact(ctx, f.acme, ContactInput{Name: "ana", Phone: "+5511911112222"})
	require.NoError(t, err)

	_, err = f.svc.GetContact(ctx, f.globex, c.ID)
	require.NoError(t, err)

	_, err = f.svc.CreateContact(ctx, f.globex, ContactInput{CompanyID: f.acme.CompanyID, Name: "bia", Phone: "+5511933334444"})
	assert.True(t, errors.Is(err, errorx.ErrAuthorization))

	grant.PermissionType = access.PermissionWrite
	require.NoError(t, f.db.UpdateGrant(ctx, grant))

	created, err := f.svc.CreateContact(ctx, f.globex, ContactInput{CompanyID: f.acme.CompanyID, Name: "bia", Phone: "+5511933334444"})
	require.NoError(t, err)
	assert.Equal(t, f.acme.CompanyID, created.CompanyID)

	shared, total, err := f.svc.ListContacts(ctx, f.globex, database.ContactFilter{}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, shared, 2)

	own, _, err := f.svc.ListContacts(ctx, f.globex, database.ContactFilter{}, false)
	require.NoError(t, err)
	assert.Empty(t, own)
}

func TestImportContacts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateContact(ctx, f.acme, ContactInput{Name: "existing", Phone: "+5511900000000"})
	require.NoError(t, err)

	input := strings.Join([]string{
		"nome,telefone,email,tags",
		`Ana,+55 11 91111-1111,ana@example.com,"vip, lead"`,
		"Bia,+5511922222222,,",
		",+5511933333333,,",
		"Carl,123,,",
		"Dup,+5511900000000,,",
		"Eva,+5511944444444,not-an-email,",
	}, "\n")

	result, err := f.svc.ImportContacts(ctx, f.acme, "", strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 4, result.Failed)
	require.Len(t, result.Errors, 4)
	assert.Equal(t, 4, result.Errors[0].Line)
	assert.Equal(t, errorx.MsgFieldRequired, result.Errors[0].Code)
	assert.Equal(t, errorx.MsgInvalidPhone, result.Errors[1].Code)
	assert.Equal(t, errorx.MsgPhoneExists, result.Errors[2].Code)
	assert.Equal(t, errorx.MsgInvalidEmail, result.Errors[3].Code)
	assert.Equal(t, "email", result.Errors[3].Field)

	list, total, err := f.svc.ListContacts(ctx, f.acme, database.ContactFilter{Search: "ana"}, false)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, OriginCSVImport, list[0].Origin)
	require.Len(t, list[0].Tags, 2)
	assert.Equal(t, "LEAD", list[0].Tags[0].Name)
	assert.Equal(t, "VIP", list[0].Tags[1].Name)
}

func TestImportContacts_InvalidHeader(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ImportContacts(context.Background(), f.acme, "", strings.NewReader("name,phone\nAna,+5511911111111\n"))
	assert.Equal(t, errorx.MsgCSVMissingColumns, messageID(err))

	_, err = f.svc.ImportContacts(context.Background(), f.acme, "", strings.NewReader(""))
	assert.Equal(t, errorx.MsgCSVInvalid, messageID(err))

	_, err = f.svc.ImportContacts(context.Background(), f.viewer, "", strings.NewReader("nome,telefone\n"))
	assert.Equal(t, errorx.MsgReadOnlyRole, messageID(err))
}

func TestExportContacts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.CreateContact(ctx, f.acme, ContactInput{Name: "ana", Phone: "+5511911111111", Email: "ana@example.com"})
	require.NoError(t, err)
	_, err = f.svc.AddTag(ctx, f.acme, c.ID, "vip")
	require.NoError(t, err)
	_, err = f.svc.AddTag(ctx, f.acme, c.ID, "lead")
	require.NoError(t, err)
	inactive := false
	_, err = f.svc.CreateContact(ctx, f.acme, ContactInput{Name: "bia", Phone: "+5511922222222", IsActive: &inactive})
	require.NoError(t, err)
	_, err = f.svc.CreateContact(ctx, f.globex, ContactInput{Name: "gil", Phone: "+5511933333333"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportContacts(ctx, f.acme, "", &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportColumns, rows[0])
	assert.Equal(t, []string{"ANA", "+5511911111111", "ana@example.com", "LEAD, VIP", "Sim"}, rows[1][:5])
	assert.Equal(t, "Não", rows[2][4])
	assert.Len(t, rows[1][5], len("02/01/2006 15:04"))

	err = f.svc.ExportContacts(ctx, f.acme, f.globex.CompanyID, &buf)
	assert.True(t, errors.Is(err, errorx.ErrAuthorization))
}
