package rules

import (
	"fmt"
	"strings"
)

// Table is a frozen, validated rule set. It holds no mutable state after
// construction and is safe for unsynchronized concurrent matching.
type Table struct {
	compiled []compiledRule
}

// NewTable validates every rule and freezes the set. Declaration order is
// preserved; it is the tie-breaker for equally specific matches.
func NewTable(ruleset []Rule) (*Table, error) {
	compiled := make([]compiledRule, 0, len(ruleset))
	for i, r := range ruleset {
		c, err := compile(r)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		compiled = append(compiled, c)
	}
	return &Table{compiled: compiled}, nil
}

// Len returns the number of rules in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.compiled)
}

// Match returns the most specific rule covering method+path, or false when
// no rule matches. The scan replaces the candidate whenever a later rule is
// at least as specific, so the last declaration wins ties.
func (t *Table) Match(method, path string) (Rule, bool) {
	if t == nil {
		return Rule{}, false
	}

	method = strings.ToUpper(method)

	var (
		best  compiledRule
		found bool
	)
	for _, c := range t.compiled {
		if !c.matches(method, path) {
			continue
		}
		if !found || !best.moreSpecificThan(c) {
			best = c
			found = true
		}
	}
	return best.rule, found
}
