package fs

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"
)

// ignoreFiles are read in every listed directory, lowest priority first so
// later files can re-include entries with negations.
var ignoreFiles = []string{".gitignore", ".ignore", ".rtreeignore"}

// IgnoreMatcher evaluates gitignore-style rules. The last matching rule wins.
type IgnoreMatcher struct {
	rules []ignoreRule
}

type ignoreRule struct {
	base     string
	segments []string
	negate   bool
	dirOnly  bool
	anchored bool
}

// AddPatterns parses the content of an ignore file located in base, a slash
// separated directory relative to the source root ("" for the root).
func (m *IgnoreMatcher) AddPatterns(content, base string) {
	for _, line := range strings.Split(content, "\n") {
		if rule, ok := parseIgnoreLine(strings.TrimRight(line, "\r"), base); ok {
			m.rules = append(m.rules, rule)
		}
	}
}

func parseIgnoreLine(line, base string) (ignoreRule, bool) {
	line = trimUnescapedSpaces(line)
	if line == "" || line[0] == '#' {
		return ignoreRule{}, false
	}

	rule := ignoreRule{base: base}
	if line[0] == '!' {
		rule.negate = true
		line = line[1:]
	} else if strings.HasPrefix(line, `\!`) || strings.HasPrefix(line, `\#`) {
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") {
		rule.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		rule.anchored = true
		line = strings.TrimLeft(line, "/")
	} else if strings.Contains(line, "/") {
		rule.anchored = true
	}
	if line == "" {
		return ignoreRule{}, false
	}

	rule.segments = strings.Split(line, "/")
	return rule, true
}

func trimUnescapedSpaces(line string) string {
	end := len(line)
	for end > 0 && line[end-1] == ' ' {
		slashes := 0
		for i := end - 2; i >= 0 && line[i] == '\\'; i-- {
			slashes++
		}
		if slashes%2 == 1 {
			break
		}
		end--
	}
	return line[:end]
}

// Match reports whether rel, a slash separated path relative to the source
// root, is ignored.
func (m *IgnoreMatcher) Match(rel string, isDir bool) bool {
	if m == nil {
		return false
	}
	ignored := false
	for _, r := range m.rules {
		if r.matches(rel, isDir) {
			ignored = !r.negate
		}
	}
	return ignored
}

func (m *IgnoreMatcher) clone() *IgnoreMatcher {
	out := &IgnoreMatcher{}
	if m != nil {
		out.rules = append([]ignoreRule(nil), m.rules...)
	}
	return out
}

func (r ignoreRule) matches(rel string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	if r.base != "" {
		if !strings.HasPrefix(rel, r.base+"/") {
			return false
		}
		rel = rel[len(r.base)+1:]
	}

	parts := strings.Split(rel, "/")
	if !r.anchored {
		ok, _ := path.Match(r.segments[0], parts[len(parts)-1])
		return ok
	}
	return matchSegments(r.segments, parts)
}

func matchSegments(pattern, parts []string) bool {
	if len(pattern) == 0 {
		return len(parts) == 0
	}
	if pattern[0] == "**" {
		if matchSegments(pattern[1:], parts) {
			return true
		}
		return len(parts) > 0 && matchSegments(pattern, parts[1:])
	}
	if len(parts) == 0 {
		return false
	}
	ok, _ := path.Match(pattern[0], parts[0])
	return ok && matchSegments(pattern[1:], parts[1:])
}

// ignoreProvider builds matchers per directory. Each directory inherits its
// parent's rules and adds its own files.
type ignoreProvider struct {
	root  string
	cache sync.Map // slash rel dir -> *IgnoreMatcher
}

func newIgnoreProvider(root string) *ignoreProvider {
	p := &ignoreProvider{root: root}
	p.cache.Store("", p.baseMatcher())
	return p
}

func (p *ignoreProvider) baseMatcher() *IgnoreMatcher {
	base := &IgnoreMatcher{}
	for _, global := range globalIgnoreFiles(p.root) {
		addIgnoreFile(base, global, "")
	}
	addIgnoreFile(base, filepath.Join(p.root, ".git", "info", "exclude"), "")
	p.addDirectory(base, "")
	return base
}

func (p *ignoreProvider) matcherFor(relDir string) *IgnoreMatcher {
	if cached, ok := p.cache.Load(relDir); ok {
		return cached.(*IgnoreMatcher)
	}
	if relDir == "" {
		actual, _ := p.cache.LoadOrStore("", p.baseMatcher())
		return actual.(*IgnoreMatcher)
	}

	parent := path.Dir(relDir)
	if parent == "." {
		parent = ""
	}
	m := p.matcherFor(parent).clone()
	p.addDirectory(m, relDir)

	actual, _ := p.cache.LoadOrStore(relDir, m)
	return actual.(*IgnoreMatcher)
}

// invalidate forgets cached rules for relDir and everything below it.
func (p *ignoreProvider) invalidate(relDir string) {
	p.cache.Range(func(key, _ any) bool {
		k := key.(string)
		if k != "" && (relDir == "" || k == relDir || strings.HasPrefix(k, relDir+"/")) {
			p.cache.Delete(k)
		}
		return true
	})
	if relDir == "" {
		p.cache.Store("", p.baseMatcher())
	}
}

func (p *ignoreProvider) addDirectory(m *IgnoreMatcher, relDir string) {
	dir := filepath.Join(p.root, filepath.FromSlash(relDir))
	for _, name := range ignoreFiles {
		addIgnoreFile(m, filepath.Join(dir, name), relDir)
	}
}

func addIgnoreFile(m *IgnoreMatcher, file, base string) {
	data, err := os.ReadFile(file)
	if err != nil || len(data) == 0 {
		return
	}
	m.AddPatterns(string(data), base)
}

// globalIgnoreFiles lists user-level exclude files: core.excludesFile from the
// repository config when set, otherwise git's default location.
func globalIgnoreFiles(root string) []string {
	if configured := coreExcludesFile(filepath.Join(root, ".git", "config")); configured != "" {
		return []string{configured}
	}
	home, err := homedir.Dir()
	if err != nil || home == "" {
		return nil
	}
	return []string{filepath.Join(home, ".config", "git", "ignore")}
}

func coreExcludesFile(configPath string) string {
	f, err := os.Open(configPath)
	if err != nil {
		return ""
	}
	defer func() {
		_ = f.Close()
	}()

	inCore := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || line[0] == '#' || line[0] == ';':
			continue
		case strings.HasPrefix(line, "["):
			inCore = strings.HasPrefix(strings.ToLower(line), "[core")
			continue
		case !inCore:
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found || !strings.EqualFold(strings.TrimSpace(key), "excludesfile") {
			continue
		}
		expanded, err := homedir.Expand(strings.TrimSpace(value))
		if err != nil || expanded == "" {
			continue
		}
		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(filepath.Dir(filepath.Dir(configPath)), expanded)
		}
		return expanded
	}
	return ""
}
