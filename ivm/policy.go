package ivm

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// PolicyDocument is the on-disk shape of a guard policy file: one entry per
// GuardedExternMap layer, applied innermost-first (the first entry wraps
// the raw ExternMap directly).
type PolicyDocument struct {
	Guards []PolicyGuard `yaml:"guards"`
}

// PolicyGuard configures a single GuardedExternMap layer.
type PolicyGuard struct {
	// Name is a free-form label surfaced in ParsePolicyDocument's error
	// messages; it has no effect on enforcement.
	Name string `yaml:"name"`
	// CallIDs are the extern call ids this guard is keyed on.
	CallIDs []uint64 `yaml:"call_ids"`
	// Inverted flips the guard from deny-listed to allow-listed ids.
	Inverted bool `yaml:"inverted"`
	// Policy is "panic" or "silent_fail"; defaults to "panic" if empty.
	Policy string `yaml:"policy"`
}

// ParsePolicyDocument decodes a guard policy file.
func ParsePolicyDocument(raw []byte) (PolicyDocument, error) {
	var doc PolicyDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return PolicyDocument{}, fmt.Errorf("ivm: parsing guard policy: %w", err)
	}
	for i, g := range doc.Guards {
		switch g.Policy {
		case "", "panic", "silent_fail":
		default:
			return PolicyDocument{}, fmt.Errorf("ivm: guard %d (%q): unrecognized policy %q", i, g.Name, g.Policy)
		}
	}
	return doc, nil
}

// Build wraps inner in one GuardedExternMap per configured guard, innermost
// entry first, and returns the outermost map along with a SecurityManager
// carrying an equivalent ExtcGuard/InvertedExtcGuard per entry so callers
// that want a yes/no answer without running the program (guard-check) can
// use IsAllowed instead of executing a call.
func (doc PolicyDocument) Build(inner ExternMap) (ExternMap, *SecurityManager) {
	mgr := NewSecurityManager()
	wrapped := inner

	for _, g := range doc.Guards {
		policy := PolicyPanic
		if g.Policy == "silent_fail" {
			policy = PolicySilentFail
		}
		wrapped = NewGuardedExternMap(wrapped, g.CallIDs, g.Inverted, policy)

		if g.Inverted {
			mgr.AddGuard(InvertedExtcGuard{Exceptions: g.CallIDs})
		} else {
			for _, id := range g.CallIDs {
				mgr.AddGuard(ExtcGuard{ID: id})
			}
		}
	}

	return wrapped, mgr
}
