/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package contentapi

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind classifies content API failures.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidCredentials
	KindExpired
	KindNotFound
	KindNetwork
	KindDecode
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindExpired:
		return "expired"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by the client. Message is meant
// for display.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// KindOf returns the kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// RetryableError marks a transient failure (network, 5xx) for retry.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// retry runs fn up to attempts times, doubling delay between tries. Only
// RetryableError failures are retried; the returned error is unwrapped.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error
	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		var re *RetryableError
		if !errors.As(err, &re) {
			return err
		}
		lastErr = re.Err
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return &Error{Kind: KindNetwork, Message: "request cancelled", Cause: ctx.Err()}
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}
