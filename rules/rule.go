package rules

import (
	"fmt"
	"strings"
)

// wildcardSuffix is the only wildcard form a pattern may carry, and only at
// the end: "/api/**" covers "/api" and every deeper path.
const wildcardSuffix = "/**"

var validMethods = map[string]struct{}{
	"GET":     {},
	"HEAD":    {},
	"POST":    {},
	"PUT":     {},
	"PATCH":   {},
	"DELETE":  {},
	"OPTIONS": {},
}

// Rule binds one HTTP method and path pattern to a required role set.
// An empty Roles slice marks the route public: any caller passes,
// authenticated or not. A non-empty set requires a verified identity holding
// at least one of the named roles.
type Rule struct {
	Method  string
	Pattern string
	Roles   []string
}

// Public reports whether the rule requires no identity.
func (r Rule) Public() bool {
	return len(r.Roles) == 0
}

func (r Rule) validate() error {
	method := strings.ToUpper(r.Method)
	if _, ok := validMethods[method]; !ok {
		return fmt.Errorf("rule %s %s: unsupported method", r.Method, r.Pattern)
	}
	if r.Pattern == "" || r.Pattern[0] != '/' {
		return fmt.Errorf("rule %s %s: pattern must start with '/'", r.Method, r.Pattern)
	}
	if i := strings.Index(r.Pattern, "*"); i >= 0 {
		if !strings.HasSuffix(r.Pattern, wildcardSuffix) {
			return fmt.Errorf("rule %s %s: wildcard is only valid as a trailing %q", r.Method, r.Pattern, wildcardSuffix)
		}
		if i != len(r.Pattern)-len(wildcardSuffix)+1 {
			return fmt.Errorf("rule %s %s: pattern may contain a single trailing wildcard", r.Method, r.Pattern)
		}
	}
	for _, role := range r.Roles {
		if role == "" {
			return fmt.Errorf("rule %s %s: empty role name", r.Method, r.Pattern)
		}
	}
	return nil
}

// compiledRule carries the precomputed matching form of a Rule.
type compiledRule struct {
	rule     Rule
	method   string
	wildcard bool
	// prefix is the pattern with the wildcard suffix stripped. For literal
	// rules it equals the full pattern.
	prefix string
}

func compile(r Rule) (compiledRule, error) {
	if err := r.validate(); err != nil {
		return compiledRule{}, err
	}

	c := compiledRule{
		rule:   r,
		method: strings.ToUpper(r.Method),
		prefix: r.Pattern,
	}
	if strings.HasSuffix(r.Pattern, wildcardSuffix) {
		c.wildcard = true
		c.prefix = strings.TrimSuffix(r.Pattern, wildcardSuffix)
	}
	return c, nil
}

// matches reports whether the compiled rule covers method+path.
func (c compiledRule) matches(method, path string) bool {
	if c.method != method {
		return false
	}
	if !c.wildcard {
		return c.prefix == path
	}
	if path == c.prefix {
		return true
	}
	return strings.HasPrefix(path, c.prefix+"/")
}

// moreSpecificThan orders two matching rules. Literal beats wildcard; among
// wildcards the longer prefix wins. Equal specificity is not "more specific",
// which lets the table's scan prefer the later declaration on ties.
func (c compiledRule) moreSpecificThan(other compiledRule) bool {
	if c.wildcard != other.wildcard {
		return !c.wildcard
	}
	if c.wildcard {
		return len(c.prefix) > len(other.prefix)
	}
	return false
}
