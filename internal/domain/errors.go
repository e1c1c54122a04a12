package domain

import "errors"

var (
	ErrCheckTimeout         = errors.New("check timeout")
	ErrCheckConnection      = errors.New("connection error")
	ErrPredicateFailure     = errors.New("predicate failure")
	ErrProxyUnavailable     = errors.New("proxy unavailable")
	ErrStoreWrite           = errors.New("store write failure")
	ErrNotificationDelivery = errors.New("notification delivery failure")
	ErrHookExecution        = errors.New("hook execution error")
)

// FailureKind classifies a failed check result.
type FailureKind string

const (
	KindNone       FailureKind = ""
	KindTimeout    FailureKind = "timeout"
	KindConnection FailureKind = "connection"
	KindPredicate  FailureKind = "predicate"
	KindProxy      FailureKind = "proxy_unavailable"
)

// KindOf maps a check error onto its failure kind.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrCheckTimeout):
		return KindTimeout
	case errors.Is(err, ErrProxyUnavailable):
		return KindProxy
	case errors.Is(err, ErrPredicateFailure):
		return KindPredicate
	default:
		return KindConnection
	}
}
