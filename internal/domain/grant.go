// internal/domain/grant.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GrantType is the closed set of permission tiers a collaborator can
// hold on a plan. Higher tiers happen to be supersets in practice, but
// each tier carries an independently defined capability set.
type GrantType string

const (
	GrantReadOnly   GrantType = "read-only"
	GrantSuggestion GrantType = "suggestion"
	GrantFullEdit   GrantType = "full-edit"
)

// IsValidGrantType reports whether t is one of the three tiers.
func IsValidGrantType(t GrantType) bool {
	switch t {
	case GrantReadOnly, GrantSuggestion, GrantFullEdit:
		return true
	}
	return false
}

// Capability is one atomic right over a plan.
type Capability string

const (
	CapabilityView     Capability = "view"
	CapabilitySuggest  Capability = "suggest"
	CapabilityEdit     Capability = "edit"
	CapabilityDelete   Capability = "delete"
	CapabilityReassign Capability = "reassign"
	CapabilityPublish  Capability = "publish"
	CapabilityComment  Capability = "comment"
)

// Capabilities is the derived set of atomic rights for a grant.
type Capabilities struct {
	View     bool `bson:"view" json:"view"`
	Suggest  bool `bson:"suggest" json:"suggest"`
	Edit     bool `bson:"edit" json:"edit"`
	Delete   bool `bson:"delete" json:"delete"`
	Reassign bool `bson:"reassign" json:"reassign"`
	Publish  bool `bson:"publish" json:"publish"`
	Comment  bool `bson:"comment" json:"comment"`
}

// Has reports whether the set contains the given capability.
func (c Capabilities) Has(cap Capability) bool {
	switch cap {
	case CapabilityView:
		return c.View
	case CapabilitySuggest:
		return c.Suggest
	case CapabilityEdit:
		return c.Edit
	case CapabilityDelete:
		return c.Delete
	case CapabilityReassign:
		return c.Reassign
	case CapabilityPublish:
		return c.Publish
	case CapabilityComment:
		return c.Comment
	}
	return false
}

// capabilityTable is the fixed tier-to-capabilities mapping. It is the
// single source of truth for what each grant type allows.
var capabilityTable = map[GrantType]Capabilities{
	GrantReadOnly: {
		View:    true,
		Comment: true,
	},
	GrantSuggestion: {
		View:    true,
		Suggest: true,
		Comment: true,
	},
	GrantFullEdit: {
		View:     true,
		Suggest:  true,
		Edit:     true,
		Delete:   true,
		Reassign: true,
		Publish:  true,
		Comment:  true,
	},
}

// CapabilitiesForType returns the fixed capability set for a tier.
// The second return value is false for an unknown tier.
func CapabilitiesForType(t GrantType) (Capabilities, bool) {
	caps, ok := capabilityTable[t]
	return caps, ok
}

// GrantRestrictions optionally narrow an otherwise-granted capability.
// MealsOnly and RequiresApproval are informational metadata for the
// owner's tooling; LimitedToBlocks scopes edit/suggest rights to
// specific plan blocks.
type GrantRestrictions struct {
	MealsOnly        bool     `bson:"mealsOnly,omitempty" json:"mealsOnly,omitempty"`
	RequiresApproval bool     `bson:"requiresApproval,omitempty" json:"requiresApproval,omitempty"`
	LimitedToBlocks  []string `bson:"limitedToBlocks,omitempty" json:"limitedToBlocks,omitempty"`
}

// PermissionGrant links a collaborator to a plan with a tier-based,
// time-bounded permission. Revocation is a soft delete: the record is
// kept with Active=false for the audit trail, never removed.
type PermissionGrant struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID            primitive.ObjectID `bson:"planId" json:"planId"`
	CollaboratorID    string             `bson:"collaboratorId" json:"collaboratorId"`
	CollaboratorName  string             `bson:"collaboratorName,omitempty" json:"collaboratorName,omitempty"`
	CollaboratorEmail string             `bson:"collaboratorEmail,omitempty" json:"collaboratorEmail,omitempty"`
	GrantType         GrantType          `bson:"grantType" json:"grantType"`
	Capabilities      Capabilities       `bson:"capabilities" json:"capabilities"`
	Restrictions      *GrantRestrictions `bson:"restrictions,omitempty" json:"restrictions,omitempty"`
	Active            bool               `bson:"active" json:"active"`
	ValidFrom         *time.Time         `bson:"validFrom,omitempty" json:"validFrom,omitempty"`
	ValidUntil        *time.Time         `bson:"validUntil,omitempty" json:"validUntil,omitempty"`
	GrantedBy         string             `bson:"grantedBy" json:"grantedBy"`
	GrantedByName     string             `bson:"grantedByName,omitempty" json:"grantedByName,omitempty"`
	GrantedAt         time.Time          `bson:"grantedAt" json:"grantedAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// EffectiveAt reports whether the grant is in force at the given time:
// active and inside the [ValidFrom, ValidUntil] window. Open-ended
// bounds are treated as unbounded.
func (g *PermissionGrant) EffectiveAt(now time.Time) bool {
	if !g.Active {
		return false
	}
	if g.ValidFrom != nil && now.Before(*g.ValidFrom) {
		return false
	}
	if g.ValidUntil != nil && now.After(*g.ValidUntil) {
		return false
	}
	return true
}

// HasCapability is the single authorization primitive: a pure
// predicate with no side effects. It is false when the grant is not
// effective at the given time or when the tier's capability set does
// not contain the capability.
func (g *PermissionGrant) HasCapability(cap Capability, now time.Time) bool {
	if !g.EffectiveAt(now) {
		return false
	}
	return g.Capabilities.Has(cap)
}

// AllowsBlock reports whether an edit-scoped restriction permits work
// on the given block. A grant without a LimitedToBlocks restriction
// allows every block.
func (g *PermissionGrant) AllowsBlock(blockID string) bool {
	if g.Restrictions == nil || len(g.Restrictions.LimitedToBlocks) == 0 {
		return true
	}
	for _, id := range g.Restrictions.LimitedToBlocks {
		if id == blockID {
			return true
		}
	}
	return false
}
