// Package exclude decides which paths a scan skips.
//
// Three rule layers are combined, lowest precedence first: built-in default
// directory names, ignore files found during traversal (each scoped to the
// directory that contains it), and user-supplied patterns applied from the
// root. The last matching rule wins; a "!" rule re-includes.
package exclude

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	ignore "github.com/sabhiram/go-gitignore"
)

// Source names the layer a rule came from.
type Source int

const (
	SourceNone Source = iota
	SourceDefault
	SourceIgnoreFile
	SourceUser
)

func (s Source) String() string {
	switch s {
	case SourceNone:
		return "none"
	case SourceDefault:
		return "default"
	case SourceIgnoreFile:
		return "ignore-file"
	case SourceUser:
		return "user"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Decision explains why a path was included or excluded. Source is
// SourceNone when no rule matched.
type Decision struct {
	Path     string `json:"path"`
	Excluded bool   `json:"excluded"`
	Source   Source `json:"source"`
	Pattern  string `json:"pattern,omitempty"`
	Origin   string `json:"origin,omitempty"` // ignore file, for SourceIgnoreFile
}

// PatternError reports a syntactically invalid pattern. It is fatal to a scan.
type PatternError struct {
	Pattern string
	Source  Source
	Origin  string
	Err     error
}

func (e *PatternError) Error() string {
	if e.Origin != "" {
		return fmt.Sprintf("invalid %s pattern %q in %s: %v", e.Source, e.Pattern, e.Origin, e.Err)
	}
	return fmt.Sprintf("invalid %s pattern %q: %v", e.Source, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Config selects the active layers.
type Config struct {
	UseDefaults bool
	// DefaultNames overrides DefaultNames() when non-nil.
	DefaultNames       []string
	RespectIgnoreFiles bool
	// IgnoreFileNames overrides DefaultIgnoreFileNames() when non-nil.
	IgnoreFileNames []string
	ExtraPatterns   []string
}

type rule struct {
	line    string
	negate  bool
	base    string // directory the rule is scoped to, root-relative
	source  Source
	origin  string
	matcher *ignore.GitIgnore
}

// Policy evaluates exclusion for paths under one root. Ignore files are read
// lazily, once per directory.
//
// Safe for concurrent use.
type Policy struct {
	root        string
	defaults    map[string]bool
	ignoreFiles []string
	respect     bool
	user        []rule
	logger      *slog.Logger

	mu       sync.Mutex
	dirRules map[string][]rule
	dirSeen  map[string]Decision
	warnings []error
}

// New compiles cfg for root. User patterns are validated here.
func New(root string, cfg Config, logger *slog.Logger) (*Policy, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Policy{
		root:     root,
		defaults: make(map[string]bool),
		respect:  cfg.RespectIgnoreFiles,
		logger:   logger,
		dirRules: make(map[string][]rule),
		dirSeen:  make(map[string]Decision),
	}

	if cfg.UseDefaults {
		names := cfg.DefaultNames
		if names == nil {
			names = DefaultNames()
		}
		for _, n := range names {
			p.defaults[n] = true
		}
	}

	p.ignoreFiles = cfg.IgnoreFileNames
	if p.ignoreFiles == nil {
		p.ignoreFiles = DefaultIgnoreFileNames()
	}

	for _, line := range cfg.ExtraPatterns {
		r, ok, err := compileRule(line, ".", SourceUser, "")
		if err != nil {
			return nil, err
		}
		if ok {
			p.user = append(p.user, r)
		}
	}
	return p, nil
}

// IsExcluded is Evaluate reduced to its verdict.
func (p *Policy) IsExcluded(rel string, isDir bool) (bool, error) {
	d, err := p.Evaluate(rel, isDir)
	return d.Excluded, err
}

// Evaluate decides rel, a root-relative slash path ("." for the root).
// A path below an excluded directory is excluded with that directory's
// decision, whatever deeper rules say.
func (p *Policy) Evaluate(rel string, isDir bool) (Decision, error) {
	rel = path.Clean(filepath.ToSlash(rel))
	if rel == "." {
		return p.evaluateRoot(), nil
	}

	ancestors := ancestorDirs(rel)
	for _, dir := range ancestors[1:] {
		d, err := p.evaluateDir(dir)
		if err != nil {
			return Decision{Path: rel}, err
		}
		if d.Excluded {
			d.Path = rel
			return d, nil
		}
	}

	for _, dir := range ancestors {
		if err := p.load(dir); err != nil {
			return Decision{Path: rel}, err
		}
	}
	return p.decide(rel, isDir, ancestors), nil
}

// Warnings returns non-fatal problems met while reading ignore files.
func (p *Policy) Warnings() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]error, len(p.warnings))
	copy(out, p.warnings)
	return out
}

func (p *Policy) evaluateRoot() Decision {
	d := Decision{Path: "."}
	name := filepath.Base(p.root)
	if p.defaults[name] {
		d = Decision{Path: ".", Excluded: true, Source: SourceDefault, Pattern: name}
	}
	for _, r := range p.user {
		if r.matcher.MatchesPath(name + "/") {
			d = Decision{Path: ".", Excluded: !r.negate, Source: SourceUser, Pattern: r.line}
		}
	}
	return d
}

func (p *Policy) evaluateDir(dir string) (Decision, error) {
	p.mu.Lock()
	d, ok := p.dirSeen[dir]
	p.mu.Unlock()
	if ok {
		return d, nil
	}

	ancestors := ancestorDirs(dir)
	for _, a := range ancestors {
		if err := p.load(a); err != nil {
			return Decision{}, err
		}
	}
	d = p.decide(dir, true, ancestors)

	p.mu.Lock()
	p.dirSeen[dir] = d
	p.mu.Unlock()
	return d, nil
}

// decide applies the layers to rel; the ignore files of every directory in
// ancestors must already be loaded.
func (p *Policy) decide(rel string, isDir bool, ancestors []string) Decision {
	d := Decision{Path: rel}

	for _, part := range strings.Split(rel, "/") {
		if p.defaults[part] {
			d.Excluded, d.Source, d.Pattern = true, SourceDefault, part
			break
		}
	}

	apply := func(r rule) {
		candidate := relativeTo(r.base, rel)
		if isDir {
			candidate += "/"
		}
		if r.matcher.MatchesPath(candidate) {
			d.Excluded = !r.negate
			d.Source, d.Pattern, d.Origin = r.source, r.line, r.origin
		}
	}

	p.mu.Lock()
	for _, dir := range ancestors {
		for _, r := range p.dirRules[dir] {
			apply(r)
		}
	}
	p.mu.Unlock()

	for _, r := range p.user {
		apply(r)
	}
	return d
}

// load reads the ignore files of dir once. A missing file is not an error; an
// unreadable one is recorded as a warning.
func (p *Policy) load(dir string) error {
	if !p.respect {
		return nil
	}

	p.mu.Lock()
	_, done := p.dirRules[dir]
	p.mu.Unlock()
	if done {
		return nil
	}

	var rules []rule
	for _, name := range p.ignoreFiles {
		file := filepath.Join(p.root, filepath.FromSlash(dir), name)
		data, err := os.ReadFile(file)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				p.warn(fmt.Errorf("read ignore file %s: %w", file, err))
			}
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			r, ok, err := compileRule(line, dir, SourceIgnoreFile, file)
			if err != nil {
				return err
			}
			if ok {
				rules = append(rules, r)
			}
		}
		p.logger.Debug("loaded ignore file", "path", file, "rules", len(rules))
	}

	p.mu.Lock()
	if _, done := p.dirRules[dir]; !done {
		p.dirRules[dir] = rules
	}
	p.mu.Unlock()
	return nil
}

func (p *Policy) warn(err error) {
	p.logger.Warn("ignore file skipped", "err", err)
	p.mu.Lock()
	p.warnings = append(p.warnings, err)
	p.mu.Unlock()
}

// compileRule parses one ignore line. ok is false for blanks and comments.
func compileRule(line, base string, source Source, origin string) (rule, bool, error) {
	line = strings.TrimRight(line, "\r")
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return rule{}, false, nil
	}

	body := trimmed
	negate := false
	if strings.HasPrefix(body, "!") {
		negate = true
		body = body[1:]
	}
	if body == "" {
		return rule{}, false, &PatternError{Pattern: trimmed, Source: source, Origin: origin, Err: errors.New("empty pattern")}
	}

	if err := validate(body); err != nil {
		return rule{}, false, &PatternError{Pattern: trimmed, Source: source, Origin: origin, Err: err}
	}

	return rule{
		line:    trimmed,
		negate:  negate,
		base:    base,
		source:  source,
		origin:  origin,
		matcher: ignore.CompileIgnoreLines(body),
	}, true, nil
}

// validate rejects malformed glob syntax such as an unclosed character class.
func validate(pattern string) error {
	glob := strings.ReplaceAll(strings.TrimPrefix(pattern, `\`), "**", "*")
	if _, err := path.Match(glob, ""); err != nil {
		return err
	}
	return nil
}

// ancestorDirs returns ".", then every proper ancestor directory of rel,
// outermost first.
func ancestorDirs(rel string) []string {
	dirs := []string{"."}
	parts := strings.Split(rel, "/")
	for i := 1; i < len(parts); i++ {
		dirs = append(dirs, strings.Join(parts[:i], "/"))
	}
	return dirs
}

func relativeTo(base, rel string) string {
	if base == "." {
		return rel
	}
	return strings.TrimPrefix(rel, base+"/")
}
