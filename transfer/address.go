// Copyright 2026 Kestrel Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transfer

import (
	"regexp"
	"strings"
)

// AddressSeparator splits a chain account from its optional free-form
// context (e.g. a memo), distinguishing sub-addresses under one account.
const AddressSeparator = "$"

const maxAddressContextLength = 256

// Characters that cannot appear in store partition keys.
var invalidKeyCharsRegexp = regexp.MustCompile(
	`[/\\#?\x00-\x1f\x7f-\x9f]`,
)

var accountSegmentRegexp = regexp.MustCompile(
	`^[a-z][a-z0-9-]*[a-z0-9]$`,
)

// Account returns the chain account part of an address, dropping any
// sub-address context.
func Account(address string) string {
	account, _, _ := strings.Cut(address, AddressSeparator)
	return account
}

// AddressContext returns the free-form context part of an address, or
// empty string when the address has none.
func AddressContext(address string) string {
	_, context, _ := strings.Cut(address, AddressSeparator)
	return context
}

// IsSimulated reports whether a transfer between two addresses resolves
// to the same underlying chain account and therefore never touches the
// external chain.
func IsSimulated(from, to string) bool {
	return Account(from) == Account(to)
}

// IsValidAddress reports whether a string is a well-formed address: a
// valid chain account name, optionally followed by the separator and a
// bounded free-form context.
func IsValidAddress(address string) bool {
	if address == "" || invalidKeyCharsRegexp.MatchString(address) {
		return false
	}
	account, context, _ := strings.Cut(address, AddressSeparator)
	if !isValidAccountName(account) {
		return false
	}
	return len(context) <= maxAddressContextLength
}

// isValidAccountName checks chain account name rules: 3 to 16
// characters, dot-separated segments of lowercase letters, digits and
// dashes, each segment starting with a letter.
func isValidAccountName(name string) bool {
	if len(name) < 3 || len(name) > 16 {
		return false
	}
	for segment := range strings.SplitSeq(name, ".") {
		if len(segment) < 3 {
			return false
		}
		if !accountSegmentRegexp.MatchString(segment) {
			return false
		}
	}
	return true
}
