package ai

import "errors"

var (
	// ErrOracleUnavailable covers transport and service failures of the model endpoint.
	ErrOracleUnavailable = errors.New("classification service unavailable")
	// ErrQuotaExceeded is wrapped together with ErrOracleUnavailable when the
	// provider answers 429 or reports an exhausted quota.
	ErrQuotaExceeded = errors.New("classification quota exceeded")
	// ErrOracleTimeout means a remote asset never became ready within the bound.
	ErrOracleTimeout = errors.New("classification service timed out")
	// ErrDegradedVerdict is returned when degraded verdicts are not persisted.
	ErrDegradedVerdict = errors.New("classification returned no usable verdict")
)
