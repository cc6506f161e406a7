package postconfirm

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// RefSet is a sorted, deduplicated set of challenge references.
type RefSet []string

// NewReference allocates a fresh opaque reference: a UUIDv4, hex-encoded
// without hyphens, satisfying the ">= 16 lowercase hex chars" recommendation
// and the challenge subject's [a-f0-9]+ capture class.
func NewReference() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// DecodeRefs parses a refs column value. It accepts a JSON array of strings,
// a bare string (the legacy single-reference form), or an empty value.
func DecodeRefs(raw string) RefSet {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return normalizeRefs(list)
	}

	return normalizeRefs([]string{raw})
}

// EncodeRefs always renders refs as a JSON array, or an empty string when
// refs is empty.
func EncodeRefs(refs RefSet) string {
	if len(refs) == 0 {
		return ""
	}
	b, err := json.Marshal([]string(refs))
	if err != nil {
		return ""
	}
	return string(b)
}

// MergeRefs returns the sorted union of a and b.
func MergeRefs(a, b RefSet) RefSet {
	if len(a) == 0 {
		return normalizeRefs(append([]string(nil), b...))
	}
	if len(b) == 0 {
		return normalizeRefs(append([]string(nil), a...))
	}
	combined := make([]string, 0, len(a)+len(b))
	combined = append(combined, a...)
	combined = append(combined, b...)
	return normalizeRefs(combined)
}

// Add returns r with ref inserted, sorted and deduplicated.
func (r RefSet) Add(ref string) RefSet {
	return normalizeRefs(append(append([]string(nil), r...), ref))
}

// Contains reports whether ref is a member of r.
func (r RefSet) Contains(ref string) bool {
	for _, candidate := range r {
		if candidate == ref {
			return true
		}
	}
	return false
}

func normalizeRefs(in []string) RefSet {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, ref := range in {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return RefSet(out)
}
