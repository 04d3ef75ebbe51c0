// Package changelog implements the changelog generator collaborator: it
// renders the commits since the last release tag as a Markdown entry and
// inserts it at the top of the changelog file.
package changelog

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"os"
	"regexp"
	"strings"
	"text/template"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/relicta-tech/crateship/internal/domain/release"
	"github.com/relicta-tech/crateship/internal/domain/release/ports"
	rperrors "github.com/relicta-tech/crateship/internal/errors"
	"github.com/relicta-tech/crateship/internal/fileutil"
	"github.com/relicta-tech/crateship/internal/infrastructure/git"
)

var _ ports.ChangelogGenerator = (*Generator)(nil)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

const defaultTemplate = "templates/entry.md.tmpl"

// entryHeadingRegex matches a release heading such as "## [v1.2.3] - 2024-01-02".
var entryHeadingRegex = regexp.MustCompile(`^## \[([^\]]+)\]`)

// CommitSource supplies the commits that make up the pending entry.
type CommitSource interface {
	LatestReleaseTag(ctx context.Context) (string, error)
	CommitsSince(ctx context.Context, tag string) ([]git.Commit, error)
}

// Options configures a Generator.
type Options struct {
	// Path is the changelog file.
	Path string
	// Title is the document heading used when the file is created.
	Title string
	// IncludeHashes appends short commit hashes to entries.
	IncludeHashes bool
	// TemplatePath replaces the built-in entry template.
	TemplatePath string
}

// Item is one changelog line.
type Item struct {
	Scope       string
	Description string
	Hash        string
}

// Section groups items under a heading.
type Section struct {
	Type  CommitType
	Title string
	Items []Item
}

// Entry is the data handed to the entry template.
type Entry struct {
	Tag      string
	Date     string
	Breaking []Item
	Sections []Section
}

// Generator writes pending-release entries.
type Generator struct {
	source CommitSource
	opts   Options
	tmpl   *template.Template
	now    func() time.Time
	logger *log.Logger
}

// New creates a Generator. clock may be nil to use the wall clock.
func New(source CommitSource, opts Options, clock ports.Clock, logger *log.Logger) (*Generator, error) {
	const op = "changelog.New"

	if opts.Title == "" {
		opts.Title = "Changelog"
	}
	if logger == nil {
		logger = log.Default()
	}

	tmpl := template.New("entry").Funcs(funcMap())
	var err error
	if opts.TemplatePath != "" {
		var data []byte
		data, err = fileutil.ReadFileLimited(opts.TemplatePath, fileutil.MaxManifestSize)
		if err != nil {
			return nil, rperrors.Wrapf(err, rperrors.KindIO, op, "failed to read template %s", opts.TemplatePath)
		}
		tmpl, err = tmpl.Parse(string(data))
	} else {
		tmpl, err = tmpl.ParseFS(embeddedTemplates, defaultTemplate)
		if err == nil {
			tmpl = tmpl.Lookup("entry.md.tmpl")
		}
	}
	if err != nil {
		return nil, rperrors.ConfigWrap(err, op, "failed to parse changelog template")
	}

	now := time.Now
	if clock != nil {
		now = clock.Now
	}
	return &Generator{source: source, opts: opts, tmpl: tmpl, now: now, logger: logger}, nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"title":             cases.Title(language.English).String,
		"upper":             strings.ToUpper,
		"lower":             strings.ToLower,
		"capitalize":        capitalize,
		"commitTypeDisplay": CommitTypeDisplayName,
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Generate renders the entry for tagLabel from the commits since the latest
// release tag and writes it into the changelog.
func (g *Generator) Generate(ctx context.Context, tagLabel string) error {
	const op = "changelog.Generate"

	since, err := g.source.LatestReleaseTag(ctx)
	if err != nil {
		return err
	}
	commits, err := g.source.CommitsSince(ctx, since)
	if err != nil {
		return err
	}

	entry, err := g.Render(tagLabel, g.now(), commits)
	if err != nil {
		return err
	}

	existing, err := fileutil.ReadFileLimited(g.opts.Path, fileutil.MaxChangelogSize)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return rperrors.Wrapf(err, rperrors.KindIO, op, "failed to read %s", g.opts.Path)
	}

	updated := Insert(string(existing), entry, tagLabel, g.opts.Title)
	if err := fileutil.ReplaceFile(g.opts.Path, []byte(updated)); err != nil {
		return rperrors.Wrapf(err, rperrors.KindIO, op, "failed to write %s", g.opts.Path)
	}

	g.logger.Debug("changelog updated", "path", g.opts.Path, "tag", tagLabel, "since", since, "commits", len(commits))
	return nil
}

// Render renders the entry for tag. Release commits are left out.
func (g *Generator) Render(tag string, date time.Time, commits []git.Commit) (string, error) {
	const op = "changelog.Render"

	data := g.build(tag, date, commits)
	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, data); err != nil {
		return "", rperrors.Wrap(err, rperrors.KindInternal, op, "failed to render changelog entry")
	}
	return strings.TrimRight(buf.String(), "\n") + "\n", nil
}

func (g *Generator) build(tag string, date time.Time, commits []git.Commit) Entry {
	entry := Entry{Tag: tag, Date: date.Format("2006-01-02")}
	grouped := make(map[CommitType][]Item)

	for _, c := range commits {
		if _, ok := release.ParseReleaseCommit(c.Subject); ok {
			continue
		}
		cc := ParseConventional(c.Subject, c.Body)
		item := Item{Scope: cc.Scope, Description: cc.Description}
		if g.opts.IncludeHashes {
			item.Hash = c.ShortHash()
		}
		if cc.Breaking {
			b := item
			if cc.BreakingDescription != "" {
				b.Description = cc.BreakingDescription
			}
			entry.Breaking = append(entry.Breaking, b)
		}
		grouped[cc.Type] = append(grouped[cc.Type], item)
	}

	for _, t := range sectionOrder {
		items := grouped[t]
		if len(items) == 0 {
			continue
		}
		entry.Sections = append(entry.Sections, Section{Type: t, Title: CommitTypeDisplayName(t), Items: items})
	}
	return entry
}

// Insert places entry above the newest release in existing. An entry already
// present for tag is replaced, and an empty document gets a title heading.
func Insert(existing, entry, tag, title string) string {
	if strings.TrimSpace(existing) == "" {
		return "# " + cases.Title(language.English).String(title) + "\n\n" + entry
	}

	lines := strings.SplitAfter(existing, "\n")
	start, end := -1, len(lines)
	for i, line := range lines {
		m := entryHeadingRegex.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
		if m == nil {
			continue
		}
		if start == -1 {
			if m[1] == tag {
				start = i
				continue
			}
			break
		}
		end = i
		break
	}

	if start >= 0 {
		rest := strings.Join(lines[end:], "")
		if rest != "" {
			return strings.Join(lines[:start], "") + entry + "\n" + rest
		}
		return strings.Join(lines[:start], "") + entry
	}

	for i, line := range lines {
		if strings.HasPrefix(line, "## ") {
			return strings.Join(lines[:i], "") + entry + "\n" + strings.Join(lines[i:], "")
		}
	}
	head := strings.TrimRight(existing, "\n")
	return head + "\n\n" + entry
}
