package models

import "time"

// AuthLockoutKey identifies the subject of failed credential checks: an account
// identifier seen from one client address.
type AuthLockoutKey struct {
	Identifier string
	IP         string
}

func NewAuthLockoutKey(identifier, ip string) AuthLockoutKey {
	return AuthLockoutKey{Identifier: identifier, IP: ip}
}

func (k AuthLockoutKey) String() string {
	return "auth:" + k.Identifier + ":" + k.IP
}

// AuthLockout tracks failed credential checks for one key.
type AuthLockout struct {
	Identifier    string
	FailureCount  int // failures in the current window
	DailyFailures int // failures in the last 24h, drives the hard lock
	LockedUntil   *time.Time
	LastFailureAt time.Time
}

const dailyWindow = 24 * time.Hour

// IsLockedAt reports whether a hard lock is in force at now.
func (l *AuthLockout) IsLockedAt(now time.Time) bool {
	return l.LockedUntil != nil && now.Before(*l.LockedUntil)
}

// FailuresInWindow returns the failures that still count at now. A window with no
// failure for its whole duration starts over.
func (l *AuthLockout) FailuresInWindow(now time.Time, window time.Duration) int {
	if l.LastFailureAt.IsZero() || now.Sub(l.LastFailureAt) >= window {
		return 0
	}
	return l.FailureCount
}

// WindowResetAt is when the current window stops counting.
func (l *AuthLockout) WindowResetAt(window time.Duration) time.Time {
	return l.LastFailureAt.Add(window)
}

// ApplyFailure counts one more failure at now, starting fresh counters for
// windows that have lapsed.
func (l *AuthLockout) ApplyFailure(now time.Time, window time.Duration) {
	if now.Sub(l.LastFailureAt) >= window {
		l.FailureCount = 0
	}
	if now.Sub(l.LastFailureAt) >= dailyWindow {
		l.DailyFailures = 0
	}
	l.FailureCount++
	l.DailyFailures++
	l.LastFailureAt = now
}

// ShouldHardLock reports whether the daily failures reached threshold and no lock is active.
func (l *AuthLockout) ShouldHardLock(threshold int, now time.Time) bool {
	return l.DailyFailures >= threshold && !l.IsLockedAt(now)
}

func (l *AuthLockout) ApplyHardLock(d time.Duration, now time.Time) {
	until := now.Add(d)
	l.LockedUntil = &until
}

// LockoutResult is the outcome of a lockout check.
type LockoutResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}
