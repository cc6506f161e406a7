package postconfirm

import "strings"

// RecipientPolicy resolves recipient_requires_challenge: given the
// envelope's normalized recipients, it returns the subset that requires the
// challenge policy.
type RecipientPolicy interface {
	ChallengeRecipients(recipients []string) []string
}

// ExemptRecipientPolicy challenges every recipient except those matching a
// configured literal address or @domain suffix.
type ExemptRecipientPolicy struct {
	addresses map[string]struct{}
	domains   map[string]struct{}
}

// NewExemptRecipientPolicy builds a policy from the exempt_recipients
// configuration list. Each entry is either a literal address or a
// "@domain" suffix.
func NewExemptRecipientPolicy(patterns []string) *ExemptRecipientPolicy {
	p := &ExemptRecipientPolicy{
		addresses: make(map[string]struct{}),
		domains:   make(map[string]struct{}),
	}
	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		if strings.HasPrefix(pattern, "@") {
			p.domains[pattern] = struct{}{}
			continue
		}
		p.addresses[pattern] = struct{}{}
	}
	return p
}

func (p *ExemptRecipientPolicy) ChallengeRecipients(recipients []string) []string {
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		lower := strings.ToLower(r)
		if _, ok := p.addresses[lower]; ok {
			continue
		}
		if idx := strings.LastIndexByte(lower, '@'); idx >= 0 {
			if _, ok := p.domains[lower[idx:]]; ok {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}
