// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_signaling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, CategoryMedia, Classify("produce"), "produce is a media event")
	assert.Equal(t, CategoryChat, Classify("send-chat"), "send-chat is a chat event")
	assert.Equal(t, CategoryAdmin, Classify("kick-participant"), "kick is an admin event")
	assert.Equal(t, CategoryDefault, Classify("join-meeting"), "unclassified events fall to default")
}

func TestAllowEnforcesPerCategoryLimits(t *testing.T) {
	limiter := NewRateLimiter()

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("conn-1", "kick-participant"), "admin allows 3 per window")
	}
	assert.False(t, limiter.Allow("conn-1", "kick-participant"), "the 4th admin event overflows")

	// Other categories on the same connection are unaffected.
	assert.True(t, limiter.Allow("conn-1", "send-chat"), "chat bucket is independent of admin")
	// Other connections are unaffected.
	assert.True(t, limiter.Allow("conn-2", "kick-participant"), "buckets are per connection")
}

func TestBucketResetsAfterWindow(t *testing.T) {
	limiter := NewRateLimiter()
	current := time.Now()
	limiter.now = func() time.Time { return current }

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow("conn-1", "send-chat"), "chat allows 5 per window")
	}
	assert.False(t, limiter.Allow("conn-1", "send-chat"), "the 6th chat event overflows")

	current = current.Add(rateWindow)
	assert.True(t, limiter.Allow("conn-1", "send-chat"), "bucket resets at the window boundary")
}

func TestReleaseFreesCounters(t *testing.T) {
	limiter := NewRateLimiter()

	for i := 0; i < 3; i++ {
		limiter.Allow("conn-1", "end-meeting")
	}
	assert.False(t, limiter.Allow("conn-1", "end-meeting"), "bucket should be full")

	limiter.Release("conn-1")
	assert.True(t, limiter.Allow("conn-1", "end-meeting"), "release starts a fresh bucket")
}
