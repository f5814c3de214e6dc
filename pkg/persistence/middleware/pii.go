package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/aretw0/ussdgw/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

// DefaultPIIPatterns match the answer keys the delivery dialog collects
// that should never be displayed.
var DefaultPIIPatterns = []string{`(?i)password`, `(?i)pin$`, `(?i)secret`}

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a read-side middleware that masks answers and
// metadata whose keys match the patterns. Sessions are saved untouched;
// wrap stores handed to operators and inspection tools with it, never the
// store the dialog resumes from.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, s *domain.Session) error {
	return m.next.Save(ctx, s)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	s, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	// Clone so callers sharing the underlying value (memory store) are unaffected.
	masked := s.Clone()
	for k := range masked.Answers {
		if m.matches(k) {
			masked.Answers[k] = Mask
		}
	}
	maskMap(masked.Metadata, m.patterns)
	if masked.Phone != "" {
		masked.Phone = maskPhone(masked.Phone)
	}
	return masked, nil
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k := range m {
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				break
			}
		}
	}
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return Mask
	}
	return phone[:len(phone)-4] + "****"
}
