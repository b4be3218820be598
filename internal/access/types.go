package access

// Role is the position of a user inside their company
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
	RoleViewer   Role = "viewer"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee, RoleViewer:
		return true
	}
	return false
}

// CanWrite reports whether the role may modify tenant data
func (r Role) CanWrite() bool {
	return r.Valid() && r != RoleViewer
}

// CompanyType distinguishes the operator company from its clients
type CompanyType string

const (
	CompanyMaster CompanyType = "master"
	CompanyClient CompanyType = "client"
)

func (t CompanyType) Valid() bool {
	return t == CompanyMaster || t == CompanyClient
}

// PermissionType is the kind of access a cross-company grant gives
type PermissionType string

const (
	PermissionRead  PermissionType = "read"
	PermissionWrite PermissionType = "write"
	PermissionAdmin PermissionType = "admin"
)

func (p PermissionType) Valid() bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionAdmin:
		return true
	}
	return false
}

// Principal is the authenticated actor on whose behalf an operation runs
type Principal struct {
	UserID                string
	Username              string
	CompanyID             string
	CompanyType           CompanyType
	Role                  Role
	Superuser             bool
	CanAccessAllCompanies bool
}

// HasGlobalAccess reports whether the principal bypasses tenant isolation
func (p *Principal) HasGlobalAccess() bool {
	if p == nil {
		return false
	}
	return p.Superuser || p.CompanyType == CompanyMaster || p.CanAccessAllCompanies
}

// IsAdmin reports whether the principal administers their own company
func (p *Principal) IsAdmin() bool {
	return p != nil && (p.Superuser || p.Role == RoleAdmin)
}

// SystemPrincipal is used by background jobs that act outside a request
func SystemPrincipal() *Principal {
	return &Principal{
		Username:              "system",
		CompanyType:           CompanyMaster,
		Role:                  RoleAdmin,
		Superuser:             true,
		CanAccessAllCompanies: true,
	}
}
