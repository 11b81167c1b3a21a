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
	"fmt"
	"time"
)

// TurnCredentials is a time-limited TURN credential pair following the
// coturn REST API convention: username is "<expiry>:<suffix>" and the
// credential is base64(HMAC-SHA1(username, secret)).
type TurnCredentials struct {
	Username   string `json:"username"`
	Credential string `json:"credential"`
}

// NewTurnCredentials mints credentials valid for ttl from now.
func NewTurnCredentials(secret, userSuffix string, ttl time.Duration, now time.Time) TurnCredentials {
	username := fmt.Sprintf("%d:%s", now.Add(ttl).Unix(), userSuffix)
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(username))
	return TurnCredentials{
		Username:   username,
		Credential: base64.StdEncoding.EncodeToString(mac.Sum(nil)),
	}
}
