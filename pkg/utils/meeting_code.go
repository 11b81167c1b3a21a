// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package utils

import (
	"crypto/rand"
	"regexp"
	"strings"
)

// MeetingCodePattern is the shareable meeting code shape: three lowercase
// letters, four, three, hyphen-separated (e.g. "abc-defg-hij").
var MeetingCodePattern = regexp.MustCompile(`^[a-z]{3}-[a-z]{4}-[a-z]{3}$`)

const codeAlphabet = "abcdefghijklmnopqrstuvwxyz"

// NewMeetingCode generates a meeting code with a CSPRNG.
func NewMeetingCode() (string, error) {
	raw := make([]byte, 10)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	var b strings.Builder
	for i, r := range raw {
		if i == 3 || i == 7 {
			b.WriteByte('-')
		}
		b.WriteByte(codeAlphabet[int(r)%len(codeAlphabet)])
	}
	return b.String(), nil
}

// IsMeetingCode reports whether s is a well-formed meeting code.
func IsMeetingCode(s string) bool {
	return MeetingCodePattern.MatchString(s)
}
