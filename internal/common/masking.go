package common

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Masked is the placeholder written in place of secrets.
const Masked = "***MASKED***"

// SensitivePattern represents a pattern to detect and mask sensitive information
type SensitivePattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Keys        []string // attribute keys whose whole value is masked (case-insensitive)
}

// DefaultSensitivePatterns covers the credentials this tool handles: the personal
// access token, the Authorization header it produces and oauth2 client secrets.
var DefaultSensitivePatterns = []SensitivePattern{
	{
		Name:        "personal_access_token",
		Regex:       regexp.MustCompile(`(?i)(personal[_-]?access[_-]?token|pat)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}=` + Masked,
		Keys:        []string{"personal_access_token", "personalaccesstoken", "pat"},
	},
	{
		Name:        "token",
		Regex:       regexp.MustCompile(`(?i)((?:access|auth|refresh)[_-]?token|token)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}=` + Masked,
		Keys:        []string{"token", "access_token", "auth_token", "refresh_token"},
	},
	{
		Name:        "password",
		Regex:       regexp.MustCompile(`(?i)(password|passwd|pwd)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}=` + Masked,
		Keys:        []string{"password", "passwd", "pwd"},
	},
	{
		Name:        "secret",
		Regex:       regexp.MustCompile(`(?i)(client[_-]?secret|secret)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}=` + Masked,
		Keys:        []string{"secret", "client_secret"},
	},
	{
		Name:        "authorization",
		Regex:       regexp.MustCompile(`(?i)(Basic|Bearer)\s+[A-Za-z0-9\-._~+/]+=*`),
		Replacement: "$1 " + Masked,
		Keys:        []string{"authorization"},
	},
}

// Masker handles masking of sensitive information in logs. Besides the regex
// patterns it tracks literal secret values (for example the configured token) and
// replaces every occurrence of them.
type Masker struct {
	mu       sync.RWMutex
	patterns []SensitivePattern
	literals []string
	enabled  bool
}

// NewMasker creates a new masker with default patterns
func NewMasker() *Masker {
	return &Masker{patterns: DefaultSensitivePatterns, enabled: true}
}

// SetEnabled enables or disables masking
func (m *Masker) SetEnabled(enabled bool) {
	m.mu.Lock()
	m.enabled = enabled
	m.mu.Unlock()
}

// IsEnabled returns whether masking is enabled
func (m *Masker) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// AddSecret registers a literal value that must never appear in logs.
// Values shorter than four characters are ignored to avoid masking noise.
func (m *Masker) AddSecret(secret string) {
	s := strings.TrimSpace(secret)
	if len(s) < 4 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.literals {
		if l == s {
			return
		}
	}
	m.literals = append(m.literals, s)
	// longest first so that overlapping secrets are fully replaced
	sort.Slice(m.literals, func(i, j int) bool { return len(m.literals[i]) > len(m.literals[j]) })
}

// MaskString masks sensitive information in a string
func (m *Masker) MaskString(input string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.enabled || input == "" {
		return input
	}
	result := input
	for _, l := range m.literals {
		result = strings.ReplaceAll(result, l, Masked)
	}
	for _, p := range m.patterns {
		result = p.Regex.ReplaceAllString(result, p.Replacement)
	}
	return result
}

// MaskValue masks a value based on its key; non-string values pass through.
func (m *Masker) MaskValue(key string, value interface{}) interface{} {
	if !m.IsEnabled() {
		return value
	}
	lowerKey := strings.ToLower(key)
	m.mu.RLock()
	for _, p := range m.patterns {
		for _, k := range p.Keys {
			if lowerKey == k {
				m.mu.RUnlock()
				return Masked
			}
		}
	}
	m.mu.RUnlock()
	switch v := value.(type) {
	case string:
		return m.MaskString(v)
	case error:
		return m.MaskString(v.Error())
	default:
		return value
	}
}

var globalMasker = NewMasker()

// RegisterSecret adds a literal secret to the global masker.
func RegisterSecret(secret string) {
	globalMasker.AddSecret(secret)
}

// EnableMasking enables/disables global masking
func EnableMasking(enabled bool) {
	globalMasker.SetEnabled(enabled)
}
