package postconfirm

import (
	"regexp"
	"strings"
)

const (
	defaultBulkRegex          = `(?i)(junk|list|bulk|auto_reply)`
	defaultAutoSubmittedRegex = `(?i)^auto-`
)

// Header is a single header field as delivered to the decider: name
// case-preserved, value raw modulo leading-whitespace trimming.
type Header struct {
	Name  string
	Value string
}

// DropFilter classifies a header block as bulk/auto-reply/loop traffic that
// should be silently discarded rather than challenged.
type DropFilter struct {
	precedence    *regexp.Regexp
	autoSubmitted *regexp.Regexp
}

// NewDropFilter compiles the operator-configured (or default) predicates.
// Either pattern may be empty, in which case the default is used.
func NewDropFilter(bulkRegex, autoSubmittedRegex string) (*DropFilter, error) {
	if bulkRegex == "" {
		bulkRegex = defaultBulkRegex
	} else {
		bulkRegex = "(?i)" + bulkRegex
	}
	if autoSubmittedRegex == "" {
		autoSubmittedRegex = defaultAutoSubmittedRegex
	} else {
		autoSubmittedRegex = "(?i)" + autoSubmittedRegex
	}

	precedence, err := globalRegexCache.compile(bulkRegex)
	if err != nil {
		return nil, err
	}
	autoSubmitted, err := globalRegexCache.compile(autoSubmittedRegex)
	if err != nil {
		return nil, err
	}

	return &DropFilter{precedence: precedence, autoSubmitted: autoSubmitted}, nil
}

// Evaluate reports whether any configured predicate fires against headers.
// It is monotone: headers are only ever additional evidence to drop, never
// evidence to keep.
func (d *DropFilter) Evaluate(headers []Header) bool {
	for _, h := range headers {
		trimmed := strings.TrimLeft(h.Value, " \t")
		switch {
		case strings.EqualFold(h.Name, "Precedence") && d.precedence.MatchString(trimmed):
			return true
		case strings.EqualFold(h.Name, "Auto-Submitted") && d.autoSubmitted.MatchString(trimmed):
			return true
		}
	}
	return false
}
