// Package resilience classifies failures talking to PaceMan.gg so logs can say
// whether the same request would fail again.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
)

// Class tells whether an error would recur on the next attempt.
type Class int

const (
	Transient Class = iota
	Permanent
)

func (c Class) String() string {
	if c == Permanent {
		return "permanent"
	}
	return "transient"
}

// ClassifiedError pins a Class onto an error.
type ClassifiedError struct {
	Class Class
	Err   error
}

func (e *ClassifiedError) Error() string { return e.Err.Error() }
func (e *ClassifiedError) Unwrap() error { return e.Err }

// NewPermanentError marks err as one that would fail again if repeated.
func NewPermanentError(err error) error {
	return classify(Permanent, err)
}

// NewTransientError marks err as one that may succeed later.
func NewTransientError(err error) error {
	return classify(Transient, err)
}

func classify(c Class, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Class: c, Err: err}
}

// StatusError is a response with status >= 400.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server responded %d: %s", e.Code, e.Message)
}

// NewStatusError classifies a rejection: 5xx and 429 are transient, the rest permanent.
func NewStatusError(code int, message string) error {
	err := &StatusError{Code: code, Message: message}
	if code >= 500 || code == 429 {
		return NewTransientError(err)
	}
	return NewPermanentError(err)
}

// ClassOf reports the class of err. Explicit classifications win, then
// cancellation, then what the transport error looks like.
func ClassOf(err error) Class {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Permanent
	}
	return transportClass(err)
}

// IsPermanentError reports whether err is non-nil and would recur.
func IsPermanentError(err error) bool {
	return err != nil && ClassOf(err) == Permanent
}

// Kind returns "transient" or "permanent" for logging; "" for nil.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	return ClassOf(err).String()
}

func transportClass(err error) Class {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Op == "parse" {
		return Permanent
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return Permanent
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transient
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.ETIMEDOUT):
		return Transient
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return Permanent
	}
	return Transient
}
