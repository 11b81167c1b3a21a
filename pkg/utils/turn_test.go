// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package utils

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func TestNewTurnCredentials(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	creds := NewTurnCredentials("secret", "meetuser", 24*time.Hour, now)

	if want := "1700086400:meetuser"; creds.Username != want {
		t.Errorf("expected username %q, got %q", want, creds.Username)
	}

	mac := hmac.New(sha1.New, []byte("secret"))
	mac.Write([]byte(creds.Username))
	if want := base64.StdEncoding.EncodeToString(mac.Sum(nil)); creds.Credential != want {
		t.Errorf("expected credential %q, got %q", want, creds.Credential)
	}
}

func TestNewTurnCredentials_SecretChangesCredential(t *testing.T) {
	now := time.Now()
	a := NewTurnCredentials("secret-a", "meetuser", time.Hour, now)
	b := NewTurnCredentials("secret-b", "meetuser", time.Hour, now)
	if a.Credential == b.Credential {
		t.Error("different secrets must produce different credentials")
	}
	if !strings.HasSuffix(a.Username, ":meetuser") {
		t.Errorf("username %q missing suffix", a.Username)
	}
}
