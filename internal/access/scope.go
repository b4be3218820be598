package access

// Scope is the set of companies a query may touch
type Scope struct {
	all bool
	ids []string
}

// AllCompanies returns a scope without tenant restriction
func AllCompanies() Scope {
	return Scope{all: true}
}

// OnlyCompanies returns a scope limited to the given companies
func OnlyCompanies(ids ...string) Scope {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return Scope{ids: out}
}

func (s Scope) Unrestricted() bool {
	return s.all
}

// CompanyIDs returns the allowed companies; meaningless when Unrestricted
func (s Scope) CompanyIDs() []string {
	return append([]string(nil), s.ids...)
}

// Empty reports whether the scope matches no company at all
func (s Scope) Empty() bool {
	return !s.all && len(s.ids) == 0
}

func (s Scope) Contains(companyID string) bool {
	if s.all {
		return true
	}
	for _, id := range s.ids {
		if id == companyID {
			return true
		}
	}
	return false
}
