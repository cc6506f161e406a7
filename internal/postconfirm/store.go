package postconfirm

import "context"

// Record is one sender row as read from either the dynamic or the static
// table.
type Record struct {
	Action Action
	Refs   RefSet
}

// PatternRule is a fallback rule matched against the sender address when no
// exact record exists in either table.
type PatternRule struct {
	Pattern string
	Action  Action
}

// Store is the persistent sender-action mapping: a dynamic (writable) table
// overlaid with a static (operator-managed) table, plus a pattern-rule
// fallback. Implementations (see internal/sqlstore) are responsible for the
// two-layer merge's storage, not its semantics -- ExactLookup returns the raw
// rows; GetAction in this package applies the merge rule.
type Store interface {
	// ExactLookup returns the dynamic and static rows for sender, each nil
	// if absent.
	ExactLookup(ctx context.Context, sender string) (dynamic, static *Record, err error)

	// SetAction replaces the dynamic row for sender with (action, refs).
	// Passing a nil/empty refs clears the stored reference set.
	SetAction(ctx context.Context, sender string, action Action, refs RefSet) error

	// Patterns returns the full set of pattern rules, from both tables.
	Patterns(ctx context.Context) ([]PatternRule, error)
}

// GetAction performs the two-layer merge described by the sender store's
// contract: dynamic overrides static; refs union; pattern fallback only
// when neither table has an exact record, tie-broken lexicographically on
// the pattern string.
func GetAction(ctx context.Context, s Store, sender string) (Action, RefSet, error) {
	dynamic, static, err := s.ExactLookup(ctx, sender)
	if err != nil {
		return ActionUnknown, nil, err
	}

	if dynamic == nil && static == nil {
		patterns, err := s.Patterns(ctx)
		if err != nil {
			return ActionUnknown, nil, err
		}
		if action, ok := matchPattern(patterns, sender); ok {
			return action, nil, nil
		}
		return ActionUnknown, nil, nil
	}

	action := ActionUnknown
	var refs RefSet
	if dynamic != nil {
		action = dynamic.Action
		refs = dynamic.Refs
	}
	if static != nil {
		if dynamic == nil {
			action = static.Action
		}
		refs = MergeRefs(refs, static.Refs)
	}

	return action, refs, nil
}

// matchPattern evaluates rules in lexicographic order of their pattern
// string and returns the action of the first one matching sender.
func matchPattern(rules []PatternRule, sender string) (Action, bool) {
	ordered := sortedPatterns(rules)
	for _, rule := range ordered {
		re, err := globalRegexCache.compile(rule.Pattern)
		if err != nil {
			continue
		}
		if re.MatchString(sender) {
			return rule.Action, true
		}
	}
	return ActionUnknown, false
}

func sortedPatterns(rules []PatternRule) []PatternRule {
	out := append([]PatternRule(nil), rules...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Pattern < out[j-1].Pattern; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
