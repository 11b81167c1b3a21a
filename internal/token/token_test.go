// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	verifier := NewVerifier("test-secret")
	token, err := verifier.Issue(Identity{
		UserId:  42,
		Email:   "alice@example.com",
		Name:    "Alice",
		Picture: "https://cdn.example.com/alice.png",
	}, time.Hour)
	require.NoError(t, err, "issue should not fail")

	identity, err := verifier.Verify(token)
	require.NoError(t, err, "verify should not fail")
	assert.Equal(t, uint64(42), identity.UserId, "user id should round-trip")
	assert.Equal(t, "alice@example.com", identity.Email, "email should round-trip")
	assert.Equal(t, "Alice", identity.Name, "name should round-trip")
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewVerifier("secret-a")
	token, err := issuer.Issue(Identity{UserId: 1, Email: "a@b.c"}, time.Hour)
	require.NoError(t, err, "issue should not fail")

	_, err = NewVerifier("secret-b").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret must be rejected")
}

func TestVerifyRejectsExpired(t *testing.T) {
	verifier := NewVerifier("test-secret")
	token, err := verifier.Issue(Identity{UserId: 1, Email: "a@b.c"}, -time.Minute)
	require.NoError(t, err, "issue should not fail")

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken, "expired token must surface ErrExpiredToken")
}

func TestVerifyRejectsMissingClaims(t *testing.T) {
	verifier := NewVerifier("test-secret")
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token, err := raw.SignedString([]byte("test-secret"))
	require.NoError(t, err, "signing should not fail")

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "token without identity claims must be rejected")
}

func TestVerifyRejectsUnsignedAlgorithm(t *testing.T) {
	verifier := NewVerifier("test-secret")
	raw := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{})
	token, err := raw.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err, "signing should not fail")

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "alg=none must be rejected")
}
