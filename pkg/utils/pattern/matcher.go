package pattern

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Matcher matches suggestion keys against glob patterns and caches the
// compiled form of every pattern it has seen.
// Supported wildcards:
// * - any sequence of characters
// ? - any single character
// [...] - any single character within the brackets
// \x - the literal character x
type Matcher struct {
	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
}

func NewMatcher() *Matcher {
	return &Matcher{
		compiled: make(map[string]*regexp.Regexp),
	}
}

// Match reports whether key matches pattern. An invalid pattern matches nothing.
func (m *Matcher) Match(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	if !IsPattern(pattern) {
		return pattern == key
	}

	m.mu.Lock()
	re, ok := m.compiled[pattern]
	if !ok {
		var err error
		re, err = Compile(pattern)
		if err != nil {
			m.mu.Unlock()
			return false
		}
		m.compiled[pattern] = re
	}
	m.mu.Unlock()

	return re.MatchString(key)
}

// Filter returns the keys matching pattern, sorted.
func (m *Matcher) Filter(pattern string, keys []string) []string {
	prefix := ExtractLiteralPrefix(pattern)
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasPrefix(key, prefix) && m.Match(pattern, key) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Compile converts a glob pattern into an anchored regular expression.
func Compile(pattern string) (*regexp.Regexp, error) {
	var result strings.Builder
	result.Grow(len(pattern)*2 + 2)
	result.WriteByte('^')

	inCharClass := false
	escaped := false
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]

		if escaped {
			result.WriteString(regexp.QuoteMeta(string(ch)))
			escaped = false
			continue
		}

		switch ch {
		case '\\':
			if i < len(pattern)-1 {
				escaped = true
			} else {
				result.WriteString(`\\`)
			}
		case '*':
			if inCharClass {
				result.WriteByte(ch)
			} else {
				result.WriteString(".*")
			}
		case '?':
			if inCharClass {
				result.WriteByte(ch)
			} else {
				result.WriteByte('.')
			}
		case '[':
			inCharClass = true
			result.WriteByte(ch)
		case ']':
			inCharClass = false
			result.WriteByte(ch)
		case '^', '$', '.', '+', '|', '(', ')', '{', '}':
			if !inCharClass {
				result.WriteByte('\\')
			}
			result.WriteByte(ch)
		default:
			result.WriteByte(ch)
		}
	}

	result.WriteByte('$')
	return regexp.Compile(result.String())
}

// ExtractLiteralPrefix returns the literal prefix of a pattern before any wildcards.
func ExtractLiteralPrefix(pattern string) string {
	var prefix strings.Builder
	escaped := false

	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]

		if escaped {
			prefix.WriteByte(ch)
			escaped = false
			continue
		}

		switch ch {
		case '\\':
			if i < len(pattern)-1 {
				escaped = true
			} else {
				return prefix.String()
			}
		case '*', '?', '[':
			return prefix.String()
		default:
			prefix.WriteByte(ch)
		}
	}

	return prefix.String()
}

// IsPattern checks if a string contains pattern metacharacters.
func IsPattern(str string) bool {
	escaped := false
	for i := 0; i < len(str); i++ {
		if escaped {
			return true
		}

		switch str[i] {
		case '\\':
			escaped = true
		case '*', '?', '[', ']':
			return true
		}
	}
	return false
}
