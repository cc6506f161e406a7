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
	"errors"

	"golang.org/x/net/idna"
)

var ErrUnicodeMailbox = errors.New("address: can not convert the Unicode local-part to the ACE form")

// ToASCII converts the domain part of the email address to the A-label form
// and fails with ErrUnicodeMailbox if the local-part contains non-ASCII
// characters.
func ToASCII(addr string) (string, error) {
	mbox, domain, err := Split(addr)
	if err != nil {
		return addr, err
	}

	aDomain, err := idna.ToASCII(domain)
	if err != nil {
		return addr, err
	}

	if !IsASCII(mbox) {
		return addr, ErrUnicodeMailbox
	}

	return mbox + "@" + aDomain, nil
}
