package changelog

import (
	"regexp"
	"strings"
)

// CommitType is a conventional commit type.
type CommitType string

// Commit types.
const (
	CommitTypeFeat     CommitType = "feat"
	CommitTypeFix      CommitType = "fix"
	CommitTypeDocs     CommitType = "docs"
	CommitTypeStyle    CommitType = "style"
	CommitTypeRefactor CommitType = "refactor"
	CommitTypePerf     CommitType = "perf"
	CommitTypeTest     CommitType = "test"
	CommitTypeBuild    CommitType = "build"
	CommitTypeCI       CommitType = "ci"
	CommitTypeChore    CommitType = "chore"
	CommitTypeRevert   CommitType = "revert"
	CommitTypeUnknown  CommitType = ""
)

// sectionOrder is the order sections appear in an entry.
var sectionOrder = []CommitType{
	CommitTypeFeat,
	CommitTypeFix,
	CommitTypePerf,
	CommitTypeRefactor,
	CommitTypeDocs,
	CommitTypeRevert,
	CommitTypeBuild,
	CommitTypeCI,
	CommitTypeTest,
	CommitTypeStyle,
	CommitTypeChore,
	CommitTypeUnknown,
}

var (
	// ConventionalCommitRegex matches <type>(<scope>)!: <description>.
	ConventionalCommitRegex = regexp.MustCompile(
		`^(?P<type>feat|fix|docs|style|refactor|perf|test|build|ci|chore|revert)` +
			`(?:\((?P<scope>[^)]+)\))?` +
			`(?P<breaking>!)?` +
			`:\s*` +
			`(?P<description>.+)$`,
	)

	// BreakingChangeRegex matches a BREAKING CHANGE footer line.
	BreakingChangeRegex = regexp.MustCompile(`(?im)^BREAKING[ -]CHANGE:\s*(.+)$`)
)

// ConventionalCommit is a parsed commit message.
type ConventionalCommit struct {
	Type                CommitType
	Scope               string
	Description         string
	Breaking            bool
	BreakingDescription string
	IsConventional      bool
}

// ParseConventional parses a commit subject and body. Commits that do not
// follow the convention come back with IsConventional false and the subject
// as their description.
func ParseConventional(subject, body string) ConventionalCommit {
	subject = strings.TrimSpace(subject)

	matches := ConventionalCommitRegex.FindStringSubmatch(subject)
	if matches == nil {
		return ConventionalCommit{Type: CommitTypeUnknown, Description: subject}
	}

	groups := make(map[string]string)
	for i, name := range ConventionalCommitRegex.SubexpNames() {
		if i != 0 && name != "" {
			groups[name] = matches[i]
		}
	}

	cc := ConventionalCommit{
		Type:           CommitType(groups["type"]),
		Scope:          groups["scope"],
		Description:    strings.TrimSpace(groups["description"]),
		Breaking:       groups["breaking"] == "!",
		IsConventional: true,
	}
	if m := BreakingChangeRegex.FindStringSubmatch(body); m != nil {
		cc.Breaking = true
		cc.BreakingDescription = strings.TrimSpace(m[1])
	}
	return cc
}

// CommitTypeDisplayName returns the section heading for a commit type.
func CommitTypeDisplayName(t CommitType) string {
	switch t {
	case CommitTypeFeat:
		return "Features"
	case CommitTypeFix:
		return "Bug Fixes"
	case CommitTypeDocs:
		return "Documentation"
	case CommitTypeStyle:
		return "Styles"
	case CommitTypeRefactor:
		return "Code Refactoring"
	case CommitTypePerf:
		return "Performance Improvements"
	case CommitTypeTest:
		return "Tests"
	case CommitTypeBuild:
		return "Build System"
	case CommitTypeCI:
		return "Continuous Integration"
	case CommitTypeChore:
		return "Chores"
	case CommitTypeRevert:
		return "Reverts"
	default:
		return "Other Changes"
	}
}
