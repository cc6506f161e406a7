package postconfirm

import (
	"bytes"
	"regexp"
	"strings"
)

// challengeSubjectRe recognizes a challenge-response subject line after
// leading whitespace has been trimmed from it.
var challengeSubjectRe = regexp.MustCompile(`(?i)^Confirm: ::([a-f0-9]+)`)

// FormatChallengeSubject renders the subject line emitted with a challenge.
// The single leading space is part of the wire format.
func FormatChallengeSubject(ref string) string {
	return " Confirm: ::" + ref
}

// ExtractChallengeRef extracts the reference from subject, if it is a
// challenge-response subject. subject is trimmed of leading whitespace
// before matching.
func ExtractChallengeRef(subject string) (string, bool) {
	trimmed := strings.TrimLeft(subject, " \t")
	m := challengeSubjectRe.FindStringSubmatch(trimmed)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsChallengeResponse reports whether subject carries a challenge
// reference.
func IsChallengeResponse(subject string) bool {
	_, ok := ExtractChallengeRef(subject)
	return ok
}

// ReformMessage reconstructs a raw message from its header pairs and body:
// header-lines CRLF body. Implementations must use this same separator both
// when capturing a message for the stash and when re-emitting it, so a
// stashed-and-released message round-trips byte for byte.
func ReformMessage(headers []Header, body []byte) []byte {
	var buf bytes.Buffer
	for _, h := range headers {
		buf.WriteString(h.Name)
		buf.WriteByte(':')
		buf.WriteString(h.Value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	buf.Write(body)
	return buf.Bytes()
}
