// Package routes builds activation predicates for declared applications.
package routes

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/aretw0/mosaic/pkg/domain"
)

// Rule is the declarative form of an activation predicate, as found in shell config.
// Set fields are combined with OR.
type Rule struct {
	PathPrefix string `yaml:"path_prefix" json:"path_prefix" mapstructure:"path_prefix"`
	HashPrefix string `yaml:"hash_prefix" json:"hash_prefix" mapstructure:"hash_prefix"`
	Path       string `yaml:"path" json:"path" mapstructure:"path"`
	Pattern    string `yaml:"pattern" json:"pattern" mapstructure:"pattern"`
}

// ErrEmptyRule is returned when a rule sets no field.
var ErrEmptyRule = errors.New("activation rule matches nothing")

// PathPrefix matches URLs whose path starts with prefix.
func PathPrefix(prefix string) domain.ActivationFunc {
	return func(u *url.URL) bool {
		return strings.HasPrefix(u.Path, prefix)
	}
}

// HashPrefix matches URLs whose fragment starts with prefix. A leading '#' is ignored.
func HashPrefix(prefix string) domain.ActivationFunc {
	prefix = strings.TrimPrefix(prefix, "#")
	return func(u *url.URL) bool {
		return strings.HasPrefix(u.Fragment, prefix)
	}
}

// Exact matches one path, ignoring a trailing slash.
func Exact(path string) domain.ActivationFunc {
	want := strings.TrimSuffix(path, "/")
	return func(u *url.URL) bool {
		return strings.TrimSuffix(u.Path, "/") == want
	}
}

// Regexp matches the path, query and fragment against re.
func Regexp(re *regexp.Regexp) domain.ActivationFunc {
	return func(u *url.URL) bool {
		return re.MatchString(u.RequestURI() + fragment(u))
	}
}

func fragment(u *url.URL) string {
	if u.Fragment == "" {
		return ""
	}
	return "#" + u.Fragment
}

// AnyOf matches when at least one predicate does.
func AnyOf(preds ...domain.ActivationFunc) domain.ActivationFunc {
	return func(u *url.URL) bool {
		for _, p := range preds {
			if p(u) {
				return true
			}
		}
		return false
	}
}

// FromRule compiles a declarative rule.
func FromRule(r Rule) (domain.ActivationFunc, error) {
	var preds []domain.ActivationFunc
	if r.PathPrefix != "" {
		preds = append(preds, PathPrefix(r.PathPrefix))
	}
	if r.HashPrefix != "" {
		preds = append(preds, HashPrefix(r.HashPrefix))
	}
	if r.Path != "" {
		preds = append(preds, Exact(r.Path))
	}
	if r.Pattern != "" {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", r.Pattern, err)
		}
		preds = append(preds, Regexp(re))
	}

	switch len(preds) {
	case 0:
		return nil, ErrEmptyRule
	case 1:
		return preds[0], nil
	}
	return AnyOf(preds...), nil
}
