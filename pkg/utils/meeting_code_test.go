// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package utils

import "testing"

func TestNewMeetingCode_Format(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := NewMeetingCode()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !IsMeetingCode(code) {
			t.Errorf("generated code %q does not match pattern", code)
		}
		seen[code] = true
	}
	if len(seen) < 190 {
		t.Errorf("expected near-unique codes, got %d distinct out of 200", len(seen))
	}
}

func TestIsMeetingCode(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"abc-defg-hij", true},
		{"zzz-zzzz-zzz", true},
		{"", false},
		{"abc-defg-hijk", false},
		{"ab-defg-hij", false},
		{"ABC-DEFG-HIJ", false},
		{"abc-def1-hij", false},
		{"abcdefghij", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := IsMeetingCode(tt.input); result != tt.expected {
				t.Errorf("expected %t, got %t", tt.expected, result)
			}
		})
	}
}
