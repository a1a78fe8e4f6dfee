package logger

import (
	"fmt"
	"sync"
)

// CollapsingLogger wraps a Logger and suppresses immediate repeats on the debug
// channel. A repeated message is re-emitted only when its repeat count reaches a
// power of two, annotated with "(x N)". Other channels pass straight through.
type CollapsingLogger struct {
	inner Logger

	mu    *sync.Mutex
	state *repeatState
}

type repeatState struct {
	last  string
	count int
}

// NewCollapsingLogger wraps inner.
func NewCollapsingLogger(inner Logger) *CollapsingLogger {
	return &CollapsingLogger{inner: inner, mu: &sync.Mutex{}, state: &repeatState{}}
}

func (c *CollapsingLogger) Debug(msg string, fields ...Field) {
	key := msg + formatFields(fields)

	c.mu.Lock()
	if key == c.state.last {
		c.state.count++
	} else {
		c.state.last = key
		c.state.count = 1
	}
	count := c.state.count
	c.mu.Unlock()

	if !isPowerOfTwo(count) {
		return
	}
	if count > 1 {
		msg = fmt.Sprintf("%s (x %d)", msg, count)
	}
	c.inner.Debug(msg, fields...)
}

func (c *CollapsingLogger) Info(msg string, fields ...Field)  { c.inner.Info(msg, fields...) }
func (c *CollapsingLogger) Warn(msg string, fields ...Field)  { c.inner.Warn(msg, fields...) }
func (c *CollapsingLogger) Error(msg string, fields ...Field) { c.inner.Error(msg, fields...) }

// WithFields shares the repeat state with the parent so that a derived logger
// cannot break a run of repeats.
func (c *CollapsingLogger) WithFields(fields ...Field) Logger {
	return &CollapsingLogger{inner: c.inner.WithFields(fields...), mu: c.mu, state: c.state}
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
