// Package rules implements the declarative authorization table: an ordered
// list of method/path-pattern/role rules frozen at engine construction and
// evaluated with pure computation on every request.
//
// Matching is most-specific-wins. A literal pattern always beats a wildcard
// one; among wildcards, the longer prefix wins. When two rules are equally
// specific, the later-declared rule takes precedence, so callers can layer
// overrides after broad defaults.
package rules
