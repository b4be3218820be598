package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncwave/crm/internal/common/errorx"
)

type grant struct {
	owner, granted string
	typ            PermissionType
	active         bool
}

type fakeGrants struct {
	grants []grant
	err    error
}

func (f *fakeGrants) HasActiveGrant(_ context.Context, ownerID, grantedID string, types ...PermissionType) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, g := range f.grants {
		if !g.active || g.owner != ownerID || g.granted != grantedID {
			continue
		}
		if len(types) == 0 {
			return true, nil
		}
		for _, t := range types {
			if t == g.typ {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeGrants) GrantedOwnerIDs(_ context.Context, grantedID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for _, g := range f.grants {
		if g.active && g.granted == grantedID {
			out = append(out, g.owner)
		}
	}
	return out, nil
}

func TestCanAccess_Rules(t *testing.T) {
	ctx := context.Background()
	pl := NewPolicy(&fakeGrants{grants: []grant{
		{owner: "acme", granted: "globex", typ: PermissionRead, active: true},
		{owner: "initech", granted: "globex", typ: PermissionWrite, active: false},
	}})

	acmeUser := &Principal{UserID: "u1", CompanyID: "acme", CompanyType: CompanyClient, Role: RoleAdmin}
	globexUser := &Principal{UserID: "u2", CompanyID: "globex", CompanyType: CompanyClient, Role: RoleEmployee}
	masterUser := &Principal{UserID: "u3", CompanyID: "hq", CompanyType: CompanyMaster, Role: RoleViewer}
	superuser := &Principal{UserID: "u4", CompanyID: "acme", CompanyType: CompanyClient, Superuser: true}
	flagged := &Principal{UserID: "u5", CompanyID: "acme", CompanyType: CompanyClient, CanAccessAllCompanies: true}

	cases := []struct {
		name    string
		p       *Principal
		company string
		opts    []Option
		want    bool
	}{
		{"superuser", superuser, "globex", nil, true},
		{"master company", masterUser, "globex", nil, true},
		{"all companies flag", flagged, "globex", nil, true},
		{"same company", acmeUser, "acme", nil, true},
		{"other company without grant", acmeUser, "globex", nil, false},
		{"active grant any type", globexUser, "acme", nil, true},
		{"grant type mismatch", globexUser, "acme", []Option{WithPermission(PermissionWrite)}, false},
		{"grant type match", globexUser, "acme", []Option{WithPermission(PermissionRead)}, true},
		{"inactive grant", globexUser, "initech", nil, false},
		{"nil principal", nil, "acme", nil, false},
		{"empty company", acmeUser, "", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := pl.CanAccess(ctx, tc.p, tc.company, tc.opts...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCanAccess_GrantsAreDirectional(t *testing.T) {
	ctx := context.Background()
	pl := NewPolicy(&fakeGrants{grants: []grant{
		{owner: "a", granted: "b", typ: PermissionRead, active: true},
		{owner: "b", granted: "c", typ: PermissionRead, active: true},
	}})

	a := &Principal{CompanyID: "a", CompanyType: CompanyClient, Role: RoleAdmin}
	c := &Principal{CompanyID: "c", CompanyType: CompanyClient, Role: RoleAdmin}

	ok, err := pl.CanAccess(ctx, a, "b")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = pl.CanAccess(ctx, c, "a")
	require.NoError(t, err)
	assert.False(t, ok, "grants are not transitive")
}

func TestCanAccess_LookupError(t *testing.T) {
	boom := errors.New("db down")
	pl := NewPolicy(&fakeGrants{err: boom})
	_, err := pl.CanAccess(context.Background(), &Principal{CompanyID: "a", Role: RoleAdmin}, "b")
	assert.ErrorIs(t, err, boom)
}

func TestAuthorizeWrite(t *testing.T) {
	ctx := context.Background()
	pl := NewPolicy(&fakeGrants{grants: []grant{
		{owner: "acme", granted: "globex", typ: PermissionRead, active: true},
		{owner: "initech", granted: "globex", typ: PermissionWrite, active: true},
	}})

	employee := &Principal{CompanyID: "globex", CompanyType: CompanyClient, Role: RoleEmployee}
	viewer := &Principal{CompanyID: "globex", CompanyType: CompanyClient, Role: RoleViewer}

	assert.NoError(t, pl.AuthorizeWrite(ctx, employee, "globex"))
	assert.NoError(t, pl.AuthorizeWrite(ctx, employee, "initech"))

	err := pl.AuthorizeWrite(ctx, employee, "acme")
	assert.True(t, errors.Is(err, errorx.ErrAuthorization))

	err = pl.AuthorizeWrite(ctx, viewer, "globex")
	assert.True(t, errors.Is(err, &errorx.Error{Kind: errorx.KindAuthorization, MessageID: errorx.MsgReadOnlyRole}))

	assert.Error(t, pl.AuthorizeWrite(ctx, nil, "globex"))
}

func TestScope(t *testing.T) {
	ctx := context.Background()
	pl := NewPolicy(&fakeGrants{grants: []grant{
		{owner: "acme", granted: "globex", typ: PermissionRead, active: true},
	}})

	globex := &Principal{CompanyID: "globex", CompanyType: CompanyClient, Role: RoleManager}

	s, err := pl.Scope(ctx, globex, false)
	require.NoError(t, err)
	assert.False(t, s.Unrestricted())
	assert.Equal(t, []string{"globex"}, s.CompanyIDs())
	assert.False(t, s.Contains("acme"))

	s, err = pl.Scope(ctx, globex, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"globex", "acme"}, s.CompanyIDs())

	s, err = pl.Scope(ctx, SystemPrincipal(), false)
	require.NoError(t, err)
	assert.True(t, s.Unrestricted())
	assert.True(t, s.Contains("anything"))

	s, err = pl.Scope(ctx, nil, true)
	require.NoError(t, err)
	assert.True(t, s.Empty())
}

func TestOwnerCompany(t *testing.T) {
	p := &Principal{CompanyID: "acme"}
	assert.Equal(t, "acme", OwnerCompany(p, ""))
	assert.Equal(t, "globex", OwnerCompany(p, "globex"))
	assert.Equal(t, "", OwnerCompany(nil, ""))
}

func TestRoleAndTypes(t *testing.T) {
	assert.True(t, RoleManager.CanWrite())
	assert.False(t, RoleViewer.CanWrite())
	assert.False(t, Role("owner").Valid())
	assert.True(t, CompanyMaster.Valid())
	assert.False(t, CompanyType("partner").Valid())
	assert.True(t, PermissionAdmin.Valid())
	assert.False(t, PermissionType("delete").Valid())
}
