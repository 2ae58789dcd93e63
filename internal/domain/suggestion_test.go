package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestionStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		from SuggestionStatus
		to   SuggestionStatus
		want bool
	}{
		{SuggestionPending, SuggestionApproved, true},
		{SuggestionPending, SuggestionRejected, true},
		{SuggestionPending, SuggestionApplied, false},
		{SuggestionApproved, SuggestionApplied, true},
		{SuggestionApproved, SuggestionRejected, false},
		{SuggestionApproved, SuggestionPending, false},
		{SuggestionRejected, SuggestionApproved, false},
		{SuggestionRejected, SuggestionApplied, false},
		{SuggestionApplied, SuggestionPending, false},
		{SuggestionApplied, SuggestionApproved, false},
		{SuggestionPending, SuggestionPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestIsValidSuggestionType(t *testing.T) {
	assert.True(t, IsValidSuggestionType(SuggestModifyMeal))
	assert.True(t, IsValidSuggestionType(SuggestOther))
	assert.False(t, IsValidSuggestionType(SuggestionType("delete-plan")))
	assert.False(t, IsValidSuggestionType(SuggestionType("")))
}
