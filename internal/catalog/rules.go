package catalog

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/rotisserie/eris"

	"aduanas/internal"
)

// ruleTimeout bounds a single substitution; backtracking patterns from the
// rule file can otherwise run away on long descriptions.
const ruleTimeout = 2 * time.Second

type compiledRule struct {
	rule        internal.RegexRule
	re          *regexp2.Regexp
	replacement string
	err         error
}

// RuleSet is the named collection of substitution rules loaded from the
// variant's rule file. Patterns are written in the backtracking dialect
// (lookarounds, backreferences), so they compile with regexp2.
type RuleSet struct {
	rules map[string]compiledRule
}

func NewRuleSet(rules ...internal.RegexRule) *RuleSet {
	set := &RuleSet{rules: make(map[string]compiledRule, len(rules))}
	for _, rule := range rules {
		set.rules[rule.Name] = compile(rule)
	}
	return set
}

func compile(rule internal.RegexRule) compiledRule {
	out := compiledRule{rule: rule}
	if rule.Pattern == "" {
		out.err = eris.Errorf("catalog: rule %s has no pattern", rule.Name)
		return out
	}
	re, err := regexp2.Compile(translatePattern(rule.Pattern), regexp2.None)
	if err != nil {
		out.err = eris.Wrapf(err, "catalog: compile rule %s", rule.Name)
		return out
	}
	re.MatchTimeout = ruleTimeout
	repl, err := translateReplacement(rule.Replacement)
	if err != nil {
		out.err = eris.Wrapf(err, "catalog: replacement of rule %s", rule.Name)
		return out
	}
	out.re = re
	out.replacement = repl
	return out
}

func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

func (s *RuleSet) Rule(name string) (internal.RegexRule, bool) {
	if s == nil {
		return internal.RegexRule{}, false
	}
	c, ok := s.rules[name]
	return c.rule, ok
}

// Apply runs the named rule over text. ok is false when the rule is absent.
// A rule that failed to compile or timed out returns the input and the error.
func (s *RuleSet) Apply(name, text string) (out string, ok bool, err error) {
	if s == nil {
		return text, false, nil
	}
	c, found := s.rules[name]
	if !found {
		return text, false, nil
	}
	if c.err != nil {
		return text, true, c.err
	}
	replaced, err := c.re.Replace(text, c.replacement, -1, -1)
	if err != nil {
		return text, true, eris.Wrapf(err, "catalog: apply rule %s", name)
	}
	return replaced, true, nil
}

type rulesFile struct {
	Rules map[string]internal.RegexRule `json:"expresiones_regulares"`
}

// LoadRules reads the rule file. On any failure it still returns a usable,
// empty set together with the error so callers can log and carry on.
func LoadRules(path string) (*RuleSet, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return NewRuleSet(), eris.Wrapf(err, "catalog: read rules %s", path)
	}
	set, err := ParseRules(blob)
	if err != nil {
		return NewRuleSet(), eris.Wrapf(err, "catalog: rules %s", path)
	}
	return set, nil
}

func ParseRules(blob []byte) (*RuleSet, error) {
	var doc rulesFile
	if err := json.Unmarshal(blob, &doc); err != nil {
		return nil, eris.Wrap(err, "decode rules")
	}
	rules := make([]internal.RegexRule, 0, len(doc.Rules))
	for name, rule := range doc.Rules {
		rule.Name = name
		rules = append(rules, rule)
	}
	return NewRuleSet(rules...), nil
}

var patternDialect = strings.NewReplacer("(?P<", "(?<")

// translatePattern maps the named-group spellings regexp2 does not accept in
// its default mode.
func translatePattern(pattern string) string {
	out := patternDialect.Replace(pattern)
	for {
		start := strings.Index(out, "(?P=")
		if start < 0 {
			return out
		}
		end := strings.IndexByte(out[start:], ')')
		if end < 0 {
			return out
		}
		name := out[start+4 : start+end]
		out = out[:start] + `\k<` + name + `>` + out[start+end+1:]
	}
}

// translateReplacement rewrites a template that uses backslash group
// references (\1, \g<name>) into regexp2's ${name} form and escapes literal
// dollars.
func translateReplacement(repl string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		ch := repl[i]
		if ch == '$' {
			b.WriteString("$$")
			continue
		}
		if ch != '\\' || i+1 == len(repl) {
			b.WriteByte(ch)
			continue
		}
		next := repl[i+1]
		switch {
		case next >= '0' && next <= '9':
			j := i + 1
			for j < len(repl) && j < i+3 && repl[j] >= '0' && repl[j] <= '9' {
				j++
			}
			b.WriteString("${" + repl[i+1:j] + "}")
			i = j - 1
		case next == 'g':
			if i+2 >= len(repl) || repl[i+2] != '<' {
				return "", eris.Errorf("missing group name at offset %d", i)
			}
			end := strings.IndexByte(repl[i+3:], '>')
			if end <= 0 {
				return "", eris.Errorf("unterminated group name at offset %d", i)
			}
			b.WriteString("${" + repl[i+3:i+3+end] + "}")
			i = i + 3 + end
		case next == '\\':
			b.WriteByte('\\')
			i++
		case next == 'n':
			b.WriteByte('\n')
			i++
		case next == 't':
			b.WriteByte('\t')
			i++
		case next == 'r':
			b.WriteByte('\r')
			i++
		case (next >= 'a' && next <= 'z') || (next >= 'A' && next <= 'Z'):
			return "", eris.Errorf("bad escape \\%c", next)
		default:
			b.WriteByte('\\')
			b.WriteByte(next)
			i++
		}
	}
	return b.String(), nil
}
