// Package glossary rewrites translated captions with user maintained term fixes.
//
// A glossary file holds one rule per line:
//
//	cooper netties => Kubernetes
//	s/\bk8s\b/Kubernetes/gi
//
// Literal rules match whole words without regard to case. Substitution rules use
// Go regular expressions; the first match is replaced unless the g flag is set.
// Rules run in file order until the text stops changing or the iteration limit is hit.
package glossary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const DefaultIterationLimit = 30

var ErrNotConverged = errors.New("glossary rules did not settle")

type rule interface {
	apply(input string) (string, bool)
}

// Glossary applies the rules loaded from a file and can reload them when the file changes.
type Glossary struct {
	path   string
	limit  int
	logger *slog.Logger

	mu    sync.RWMutex
	rules []rule
}

// Load reads path. An empty path or a missing file yields a glossary that changes nothing.
// A read or parse error is returned together with an empty glossary that still tracks path,
// so Watch picks up a corrected file.
func Load(path string, limit int, logger *slog.Logger) (*Glossary, error) {
	if limit <= 0 {
		limit = DefaultIterationLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &Glossary{path: strings.TrimSpace(path), limit: limit, logger: logger.With("component", "glossary")}
	if err := g.Reload(); err != nil {
		return g, err
	}
	return g, nil
}

// Reload re-reads the glossary file. On error the previous rules stay active.
func (g *Glossary) Reload() error {
	if g.path == "" {
		return nil
	}
	contents, err := os.ReadFile(g.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			g.swap(nil)
			return nil
		}
		return fmt.Errorf("failed to read glossary %q: %w", g.path, err)
	}

	rules, err := parse(string(contents))
	if err != nil {
		return fmt.Errorf("failed to parse glossary %q: %w", g.path, err)
	}
	g.swap(rules)
	return nil
}

func (g *Glossary) swap(rules []rule) {
	g.mu.Lock()
	g.rules = rules
	g.mu.Unlock()
}

// Len is the number of active rules.
func (g *Glossary) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rules)
}

// Apply rewrites text. ErrNotConverged is returned with the last result when rules keep firing.
func (g *Glossary) Apply(text string) (string, error) {
	g.mu.RLock()
	rules := g.rules
	g.mu.RUnlock()
	if len(rules) == 0 || text == "" {
		return text, nil
	}

	result := text
	for i := 0; i < g.limit; i++ {
		changed := false
		for _, r := range rules {
			if next, ok := r.apply(result); ok {
				result = next
				changed = true
			}
		}
		if !changed {
			return result, nil
		}
	}
	return result, ErrNotConverged
}

// Watch reloads the glossary whenever its file is written, created or renamed into place.
// It blocks until ctx is cancelled.
func (g *Glossary) Watch(ctx context.Context) error {
	if g.path == "" {
		<-ctx.Done()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create glossary watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files by rename, so watch the directory rather than the file.
	if err := watcher.Add(filepath.Dir(g.path)); err != nil {
		return fmt.Errorf("failed to watch glossary directory: %w", err)
	}

	target := filepath.Clean(g.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := g.Reload(); err != nil {
				g.logger.Warn("glossary reload failed", "error", err)
				continue
			}
			g.logger.Info("glossary reloaded", "rules", g.Len())
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			g.logger.Warn("glossary watcher error", "error", err)
		}
	}
}

// parse compiles glossary text. Blank lines and lines starting with # are skipped.
func parse(contents string) ([]rule, error) {
	lines := strings.Split(contents, "\n")
	rules := make([]rule, 0, len(lines))
	for index, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var (
			r   rule
			err error
		)
		switch {
		case isSubstitution(line):
			r, err = parseSubstitution(line)
			// a term such as s-class => S-Class only looks like a substitution
			if err != nil && strings.Contains(line, "=>") {
				r, err = parseTerm(line)
			}
		case strings.Contains(line, "=>"):
			r, err = parseTerm(line)
		default:
			err = errors.New("expected \"term => replacement\" or s/pattern/replacement/flags")
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", index+1, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

type termRule struct {
	re          *regexp.Regexp
	replacement string
}

func parseTerm(line string) (rule, error) {
	from, to, _ := strings.Cut(line, "=>")
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" {
		return nil, errors.New("term cannot be empty")
	}

	pattern := regexp.QuoteMeta(from)
	if isWordByte(from[0]) {
		pattern = `\b` + pattern
	}
	if isWordByte(from[len(from)-1]) {
		pattern += `\b`
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid term: %w", err)
	}
	return termRule{re: re, replacement: to}, nil
}

func (r termRule) apply(input string) (string, bool) {
	output := r.re.ReplaceAllLiteralString(input, r.replacement)
	return output, output != input
}

type substitutionRule struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

var backReference = regexp.MustCompile(`\\(\d)`)

func parseSubstitution(line string) (rule, error) {
	delim := line[1]
	pattern, pos, err := readSection(line, 2, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	replacement, pos, err := readSection(line, pos, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid replacement: %w", err)
	}

	var global bool
	var prefix string
	for _, flag := range strings.TrimSpace(line[pos:]) {
		switch flag {
		case 'g':
			global = true
		case 'i', 'm', 's':
			if !strings.ContainsRune(prefix, flag) {
				prefix += string(flag)
			}
		default:
			return nil, fmt.Errorf("unsupported flag %q", flag)
		}
	}
	if prefix != "" {
		pattern = "(?" + prefix + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	// sed style \1 becomes ${1}
	replacement = backReference.ReplaceAllString(replacement, `$${$1}`)
	return substitutionRule{re: re, replacement: replacement, global: global}, nil
}

func (r substitutionRule) apply(input string) (string, bool) {
	if r.global {
		output := r.re.ReplaceAllString(input, r.replacement)
		return output, output != input
	}

	match := r.re.FindStringSubmatchIndex(input)
	if match == nil {
		return input, false
	}
	expanded := r.re.ExpandString(nil, r.replacement, input, match)
	output := input[:match[0]] + string(expanded) + input[match[1]:]
	return output, output != input
}

// readSection reads up to the next unescaped delim. An escaped delimiter loses its backslash.
func readSection(line string, start int, delim byte) (string, int, error) {
	var b strings.Builder
	for i := start; i < len(line); i++ {
		c := line[i]
		if c == '\\' && i+1 < len(line) {
			if line[i+1] == delim {
				b.WriteByte(delim)
			} else {
				b.WriteByte(c)
				b.WriteByte(line[i+1])
			}
			i++
			continue
		}
		if c == delim {
			return b.String(), i + 1, nil
		}
		b.WriteByte(c)
	}
	return "", 0, errors.New("missing closing delimiter")
}

func isSubstitution(line string) bool {
	if len(line) < 2 || line[0] != 's' {
		return false
	}
	d := line[1]
	return !isWordByte(d) && d != ' ' && d != '\t' && d != '\\'
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
