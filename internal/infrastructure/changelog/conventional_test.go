package changelog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConventional(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		body    string
		want    ConventionalCommit
	}{
		{
			name:    "feature with scope",
			subject: "feat(parser): accept trailing commas",
			want:    ConventionalCommit{Type: CommitTypeFeat, Scope: "parser", Description: "accept trailing commas", IsConventional: true},
		},
		{
			name:    "bang marks breaking",
			subject: "fix!: drop legacy flag",
			want:    ConventionalCommit{Type: CommitTypeFix, Description: "drop legacy flag", Breaking: true, IsConventional: true},
		},
		{
			name:    "breaking footer",
			subject: "refactor: split config loader",
			body:    "Moves things around.\n\nBREAKING CHANGE: config keys renamed",
			want: ConventionalCommit{
				Type: CommitTypeRefactor, Description: "split config loader",
				Breaking: true, BreakingDescription: "config keys renamed", IsConventional: true,
			},
		},
		{
			name:    "free-form subject",
			subject: "Update README",
			want:    ConventionalCommit{Type: CommitTypeUnknown, Description: "Update README"},
		},
		{
			name:    "unknown type is not conventional",
			subject: "feature: nope",
			want:    ConventionalCommit{Type: CommitTypeUnknown, Description: "feature: nope"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseConventional(tt.subject, tt.body))
		})
	}
}

func TestCommitTypeDisplayName(t *testing.T) {
	assert.Equal(t, "Features", CommitTypeDisplayName(CommitTypeFeat))
	assert.Equal(t, "Bug Fixes", CommitTypeDisplayName(CommitTypeFix))
	assert.Equal(t, "Other Changes", CommitTypeDisplayName(CommitTypeUnknown))
	for _, ct := range sectionOrder {
		assert.NotEmpty(t, CommitTypeDisplayName(ct))
	}
}
