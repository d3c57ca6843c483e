package middleware

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/aretw0/mosaic/pkg/domain"
	"github.com/aretw0/mosaic/pkg/ports"
)

// Mask replaces the values of masked query parameters.
const Mask = "***"

type maskMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewQueryMaskMiddleware creates a middleware that masks the values of query
// parameters whose name matches one of the patterns, in the URL and in every
// history entry. A resumed session lands on the masked URL.
func NewQueryMaskMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid mask pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &maskMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *maskMiddleware) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	// Copy so the caller's snapshot is untouched.
	cloned := *snap
	cloned.URL = m.mask(snap.URL)
	cloned.History = make([]string, len(snap.History))
	for i, entry := range snap.History {
		cloned.History[i] = m.mask(entry)
	}
	return m.next.Save(ctx, sessionID, &cloned)
}

func (m *maskMiddleware) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *maskMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *maskMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *maskMiddleware) mask(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	changed := false
	for key, values := range q {
		for _, p := range m.patterns {
			if p.MatchString(key) {
				for i := range values {
					values[i] = Mask
				}
				changed = true
				break
			}
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}
