// Package policy decides who may change a restaurant record.
//
// Every record is owned by one or more accounts. The curator's list is the
// public "master list"; the co-curator manages it jointly with the curator.
package policy

import "restaurant-tracker-api/models"

type Policy struct {
	Curator   string
	CoCurator string
}

// New builds a policy from the configured curator pair. Either may be empty.
func New(curator, coCurator string) *Policy {
	return &Policy{Curator: curator, CoCurator: coCurator}
}

// IsCurator reports whether email is the curator or the co-curator
func (p *Policy) IsCurator(email string) bool {
	if email == "" {
		return false
	}
	return email == p.Curator || email == p.CoCurator
}

// CanModify reports whether requester may update or delete r
func (p *Policy) CanModify(requester string, r *models.Restaurant) bool {
	if requester == "" || r == nil {
		return false
	}
	if r.IsOwnedBy(requester) {
		return true
	}
	// Curator-owned records are also managed by the co-curator
	return p.Curator != "" && r.IsOwnedBy(p.Curator) && p.IsCurator(requester)
}

// InitialOwners returns the owner list of a record created by creator:
// the curator pair for either curator, otherwise the creator alone.
func (p *Policy) InitialOwners(creator string) []string {
	if p.Curator == "" || !p.IsCurator(creator) {
		return []string{creator}
	}
	owners := []string{p.Curator}
	if p.CoCurator != "" && p.CoCurator != p.Curator {
		owners = append(owners, p.CoCurator)
	}
	return owners
}
