// Package ratelimit holds the per-IP sliding-window rate limiting model.
// Endpoint classes carry different budgets so one noisy reader cannot
// starve detection calls, and vice versa.
package ratelimit

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EndpointClass categorizes endpoints for differentiated budgets.
type EndpointClass string

const (
	// ClassRead covers audit queries and health reads.
	ClassRead EndpointClass = "read"
	// ClassWrite covers audit entry ingestion.
	ClassWrite EndpointClass = "write"
	// ClassDetection covers fraud sweeps and risk assessments.
	ClassDetection EndpointClass = "detection"
	// ClassToken covers token issuance, verification, and guard checks.
	ClassToken EndpointClass = "token"
)

// IsValid reports whether the class is a known enum value.
func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassRead, ClassWrite, ClassDetection, ClassToken:
		return true
	}
	return false
}

// Limit is one budget: at most Requests within a sliding Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Config assigns a budget to each endpoint class.
type Config struct {
	Read      Limit
	Write     Limit
	Detection Limit
	Token     Limit
}

// DefaultConfig returns the per-minute budgets used in production.
func DefaultConfig() Config {
	return Config{
		Read:      Limit{Requests: 100, Window: time.Minute},
		Write:     Limit{Requests: 50, Window: time.Minute},
		Detection: Limit{Requests: 10, Window: time.Minute},
		Token:     Limit{Requests: 30, Window: time.Minute},
	}
}

// LimitFor resolves the budget for a class. Unknown classes get the
// write budget.
func (c Config) LimitFor(class EndpointClass) Limit {
	switch class {
	case ClassRead:
		return c.Read
	case ClassWrite:
		return c.Write
	case ClassDetection:
		return c.Detection
	case ClassToken:
		return c.Token
	default:
		return c.Write
	}
}

func (c Config) Validate() error {
	for _, l := range []struct {
		name  string
		limit Limit
	}{
		{"read", c.Read},
		{"write", c.Write},
		{"detection", c.Detection},
		{"token", c.Token},
	} {
		if l.limit.Requests <= 0 {
			return fmt.Errorf("%s limit must be positive", l.name)
		}
		if l.limit.Window <= 0 {
			return errors.New(l.name + " window must be positive")
		}
	}
	return nil
}

// Result is the outcome of one rate limit check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"`
	// Degraded marks results served from the in-memory fallback while the
	// shared store is unreachable.
	Degraded bool `json:"-"`
}

// KeyForIP builds the bucket key for an IP under a class. Delimiter
// characters in the IP are escaped so a crafted header cannot address an
// adjacent bucket.
func KeyForIP(class EndpointClass, ip string) string {
	return "ratelimit:" + string(class) + ":ip:" + strings.ReplaceAll(ip, ":", "_")
}
