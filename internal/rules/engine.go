// Package rules rewrites recognized voice transcripts with user-defined
// substitutions, so spoken shorthand ("cue ell" -> "kubectl") survives the
// trip into a chat turn.
package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

type rule struct {
	re          *regexp.Regexp
	replacement string
}

// Engine applies an ordered substitution list until the text stops
// changing, bounded by a pass limit to break rewrite cycles.
type Engine struct {
	rules  []rule
	passes int
}

// Load reads a rules file. A missing or empty path yields an engine that
// passes text through untouched.
func Load(path string, passes int) (*Engine, error) {
	if passes <= 0 {
		passes = 30
	}
	engine := &Engine{passes: passes}

	if strings.TrimSpace(path) == "" {
		return engine, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return engine, nil
		}
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}

	for index, raw := range strings.Split(string(contents), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parsed, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("rules file %q line %d: %w", path, index+1, err)
		}
		engine.rules = append(engine.rules, parsed)
	}

	return engine, nil
}

// Rewrite transforms text deterministically. It implements the transcript
// rewriter port.
func (e *Engine) Rewrite(text string) (string, error) {
	if len(e.rules) == 0 {
		return text, nil
	}

	result := text
	for pass := 0; pass < e.passes; pass++ {
		changed := false
		for _, r := range e.rules {
			next := r.re.ReplaceAllString(result, r.replacement)
			if next != result {
				result = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return result, nil
}

// Size reports how many rules are loaded.
func (e *Engine) Size() int {
	return len(e.rules)
}

// parseLine accepts two forms: literal "from => to" and sed-style
// "s/pattern/replacement/flags". Both match case-insensitively unless a
// regex rule opts out.
func parseLine(line string) (rule, error) {
	if strings.HasPrefix(line, "s") && len(line) > 1 && !isWordByte(line[1]) {
		return parseRegexLine(line)
	}
	return parseLiteralLine(line)
}

func parseLiteralLine(line string) (rule, error) {
	parts := strings.SplitN(line, "=>", 2)
	if len(parts) != 2 {
		return rule{}, errors.New("expected \"from => to\" or \"s/pattern/replacement/\"")
	}
	from := strings.TrimSpace(parts[0])
	to := strings.TrimSpace(parts[1])
	if from == "" {
		return rule{}, errors.New("substitution source cannot be empty")
	}

	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(from))
	if err != nil {
		return rule{}, fmt.Errorf("invalid substitution source: %w", err)
	}
	return rule{re: re, replacement: to}, nil
}

func parseRegexLine(line string) (rule, error) {
	delim := string(line[1])
	segments := strings.Split(line[2:], delim)
	if len(segments) < 2 {
		return rule{}, errors.New("unterminated substitution expression")
	}

	pattern := segments[0]
	replacement := segments[1]
	flags := ""
	if len(segments) > 2 {
		flags = strings.TrimSpace(segments[2])
	}

	caseInsensitive := true
	for _, flag := range flags {
		switch flag {
		case 'i', 'g':
			// Case-insensitive is the default; all rules apply globally.
		case 'I':
			caseInsensitive = false
		default:
			return rule{}, fmt.Errorf("unsupported substitution flag %q", string(flag))
		}
	}

	if caseInsensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return rule{}, fmt.Errorf("invalid substitution pattern: %w", err)
	}
	return rule{re: re, replacement: replacement}, nil
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9') ||
		b == ' ' || b == '\t'
}
