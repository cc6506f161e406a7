/*
Maddy Mail Server - Composable all-in-one email server.
Copyright © 2019-2020 Max Mazurov <fox.cpp@disroot.org>, Maddy Mail Server contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package address

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ForLookup transforms the local-part and domain of the address into a
// canonical form usable for map lookups or direct comparisons.
//
// If Equal(addr1, addr2) == true, then ForLookup(addr1) == ForLookup(addr2).
//
// On error, the case-folded address is also returned.
func ForLookup(addr string) (string, error) {
	mbox, domain, err := Split(addr)
	if err != nil {
		return strings.ToLower(addr), err
	}

	mbox = strings.ToLower(norm.NFC.String(mbox))
	domain = strings.ToLower(norm.NFC.String(domain))

	if domain == "" {
		return mbox, nil
	}

	return mbox + "@" + domain, nil
}

// Equal reports whether addr1 and addr2 are considered to be
// case-insensitively equivalent.
//
// Equivalence for malformed addresses is defined using regular byte-string
// comparison with case-folding applied.
func Equal(addr1, addr2 string) bool {
	if addr1 == addr2 {
		return true
	}

	uAddr1, _ := ForLookup(addr1)
	uAddr2, _ := ForLookup(addr2)
	return uAddr1 == uAddr2
}

// IsASCII reports whether s contains only ASCII characters.
func IsASCII(s string) bool {
	for _, ch := range s {
		if ch >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// angleAddr extracts the address from a RFC 5321/5322 "angle-addr" form,
// e.g. `Some Name <user@example.org>` becomes `user@example.org`.
var angleAddr = regexp.MustCompile(`<([^>]*)>`)

// Normalize extracts the bare mailbox from a raw envelope or header address
// string: surrounding whitespace is stripped, and if the string contains an
// angle-addr ("<...>"), the content between the angle brackets is used
// instead of the whole string.
//
// The original case is preserved; use ForLookup on the result to fold it for
// comparisons.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)

	if m := angleAddr.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}

	return trimmed
}
