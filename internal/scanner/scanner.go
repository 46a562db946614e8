package scanner

import (
	"fmt"
	"time"

	"BulletinBriefs/internal/domain"
)

// Subject carries everything a rule may inspect for one article.
type Subject struct {
	Article   domain.Article
	Permalink string
	// Page is nil when the live fetch failed; FetchErr then holds the cause.
	Page     *domain.PageSnapshot
	FetchErr error
	Now      time.Time
}

// FixKind tells the auto-fixer how a finding is repaired.
type FixKind int

const (
	FixNone FixKind = iota
	// FixField overwrites one article column with Finding.Value.
	FixField
	// FixGenerateContent regenerates the article body through the AI generator.
	FixGenerateContent
)

// Finding is a single defect reported by a rule.
type Finding struct {
	Type     domain.IssueType
	Severity domain.Severity
	Notes    string
	Fix      FixKind
	Field    domain.ArticleField
	Value    string
	// Reindex asks for a re-crawl once the fix has been written.
	Reindex bool
}

// Rule is one independent SEO check.
type Rule interface {
	Name() string
	Check(s Subject) []Finding
}

// Registry keeps rules in registration order; scans evaluate them in that order.
type Registry struct {
	rules []Rule
	index map[string]int
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: map[string]int{}}
}

// Register appends a rule, or replaces a rule with the same name in place.
func (r *Registry) Register(rule Rule) {
	if r.index == nil {
		r.index = map[string]int{}
	}
	if i, ok := r.index[rule.Name()]; ok {
		r.rules[i] = rule
		return
	}
	r.index[rule.Name()] = len(r.rules)
	r.rules = append(r.rules, rule)
}

// Resolve returns a rule by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Rule, error) {
	if i, ok := r.index[name]; ok {
		return r.rules[i], nil
	}
	return nil, fmt.Errorf("rule %s is not registered", name)
}

// Rules returns the rules in evaluation order.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Evaluate runs every rule against the subject and concatenates the findings.
func (r *Registry) Evaluate(s Subject) []Finding {
	var findings []Finding
	for _, rule := range r.rules {
		findings = append(findings, rule.Check(s)...)
	}
	return findings
}
