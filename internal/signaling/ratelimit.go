// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_signaling

import (
	"sync"
	"time"
)

// Category is a rate-limit class. Every inbound event maps to exactly one.
type Category string

const (
	CategoryMedia   Category = "media"
	CategoryChat    Category = "chat"
	CategoryAdmin   Category = "admin"
	CategoryDefault Category = "default"
)

// categoryLimits is events per window per (connection, category). Overflow
// is dropped silently: no ack, no error push.
var categoryLimits = map[Category]int{
	CategoryMedia:   30,
	CategoryChat:    5,
	CategoryAdmin:   3,
	CategoryDefault: 10,
}

const rateWindow = time.Second

var eventCategories = map[string]Category{
	"create-transport":       CategoryMedia,
	"connect-transport":      CategoryMedia,
	"produce":                CategoryMedia,
	"consume":                CategoryMedia,
	"resume-consumer":        CategoryMedia,
	"set-preferred-layers":   CategoryMedia,
	"pause-producer":         CategoryMedia,
	"resume-producer":        CategoryMedia,
	"close-producer":         CategoryMedia,
	"send-chat":              CategoryChat,
	"ask-question":           CategoryChat,
	"upvote-question":        CategoryChat,
	"lobby-admit":            CategoryAdmin,
	"lobby-reject":           CategoryAdmin,
	"move-to-lobby":          CategoryAdmin,
	"kick-participant":       CategoryAdmin,
	"transfer-host":          CategoryAdmin,
	"end-meeting":            CategoryAdmin,
	"invite-participant":     CategoryAdmin,
	"create-breakout":        CategoryAdmin,
	"close-breakouts":        CategoryAdmin,
	"broadcast-to-breakouts": CategoryAdmin,
	"mark-answered":          CategoryAdmin,
	"pin-question":           CategoryAdmin,
}

// Classify maps an event name to its rate category.
func Classify(event string) Category {
	if c, ok := eventCategories[event]; ok {
		return c
	}
	return CategoryDefault
}

type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter keeps fixed-window counters per (connection, category). The
// bucket resets on the first event at or after its reset time. Counters are
// freed on disconnect via Release.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]map[Category]*bucket
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]map[Category]*bucket),
		now:     time.Now,
	}
}

// Allow records one event and reports whether it fits the window.
func (l *RateLimiter) Allow(connId, event string) bool {
	category := Classify(event)
	limit := categoryLimits[category]
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	perConn, ok := l.buckets[connId]
	if !ok {
		perConn = make(map[Category]*bucket)
		l.buckets[connId] = perConn
	}
	b, ok := perConn[category]
	if !ok || !now.Before(b.resetAt) {
		perConn[category] = &bucket{count: 1, resetAt: now.Add(rateWindow)}
		return true
	}
	if b.count >= limit {
		return false
	}
	b.count++
	return true
}

// Release frees all counters of a connection.
func (l *RateLimiter) Release(connId string) {
	l.mu.Lock()
	delete(l.buckets, connId)
	l.mu.Unlock()
}
