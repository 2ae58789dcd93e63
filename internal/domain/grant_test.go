package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilitiesForType(t *testing.T) {
	tests := []struct {
		name      string
		grantType GrantType
		want      Capabilities
	}{
		{
			name:      "read-only gets view and comment",
			grantType: GrantReadOnly,
			want:      Capabilities{View: true, Comment: true},
		},
		{
			name:      "suggestion adds suggest",
			grantType: GrantSuggestion,
			want:      Capabilities{View: true, Suggest: true, Comment: true},
		},
		{
			name:      "full-edit gets everything",
			grantType: GrantFullEdit,
			want: Capabilities{
				View: true, Suggest: true, Edit: true, Delete: true,
				Reassign: true, Publish: true, Comment: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CapabilitiesForType(tt.grantType)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCapabilitiesForType_Unknown(t *testing.T) {
	_, ok := CapabilitiesForType(GrantType("admin"))
	assert.False(t, ok)
}

func TestCapabilitiesHas(t *testing.T) {
	caps, _ := CapabilitiesForType(GrantSuggestion)

	assert.True(t, caps.Has(CapabilityView))
	assert.True(t, caps.Has(CapabilitySuggest))
	assert.True(t, caps.Has(CapabilityComment))
	assert.False(t, caps.Has(CapabilityEdit))
	assert.False(t, caps.Has(CapabilityDelete))
	assert.False(t, caps.Has(CapabilityReassign))
	assert.False(t, caps.Has(CapabilityPublish))
	assert.False(t, caps.Has(Capability("unknown")))
}

func TestGrantEffectiveAt(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	before := now.Add(-24 * time.Hour)
	after := now.Add(24 * time.Hour)

	tests := []struct {
		name  string
		grant PermissionGrant
		want  bool
	}{
		{
			name:  "active with no window",
			grant: PermissionGrant{Active: true},
			want:  true,
		},
		{
			name:  "inactive grant is never effective",
			grant: PermissionGrant{Active: false},
			want:  false,
		},
		{
			name:  "inside window",
			grant: PermissionGrant{Active: true, ValidFrom: &before, ValidUntil: &after},
			want:  true,
		},
		{
			name:  "before validFrom",
			grant: PermissionGrant{Active: true, ValidFrom: &after},
			want:  false,
		},
		{
			name:  "after validUntil",
			grant: PermissionGrant{Active: true, ValidUntil: &before},
			want:  false,
		},
		{
			name:  "open-ended start",
			grant: PermissionGrant{Active: true, ValidUntil: &after},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.grant.EffectiveAt(now))
		})
	}
}

func TestGrantHasCapability(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	caps, _ := CapabilitiesForType(GrantFullEdit)

	grant := PermissionGrant{
		GrantType:    GrantFullEdit,
		Capabilities: caps,
		Active:       true,
	}
	assert.True(t, grant.HasCapability(CapabilityEdit, now))

	// An expired grant holds nothing, regardless of tier.
	expired := now.Add(-time.Hour)
	grant.ValidUntil = &expired
	assert.False(t, grant.HasCapability(CapabilityEdit, now))
	assert.False(t, grant.HasCapability(CapabilityView, now))
}

func TestGrantAllowsBlock(t *testing.T) {
	unrestricted := PermissionGrant{}
	assert.True(t, unrestricted.AllowsBlock("breakfast"))

	limited := PermissionGrant{
		Restrictions: &GrantRestrictions{LimitedToBlocks: []string{"lunch", "dinner"}},
	}
	assert.True(t, limited.AllowsBlock("lunch"))
	assert.True(t, limited.AllowsBlock("dinner"))
	assert.False(t, limited.AllowsBlock("breakfast"))

	emptyList := PermissionGrant{Restrictions: &GrantRestrictions{}}
	assert.True(t, emptyList.AllowsBlock("anything"))
}
