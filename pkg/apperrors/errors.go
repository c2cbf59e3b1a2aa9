package apperrors

import "errors"

var (
	// ErrConnectivity indicates the source or target store was unreachable or
	// rejected a query at the transport level. The current pass is abandoned;
	// the continuous loop retries on its next tick.
	ErrConnectivity = errors.New("store unreachable")

	// ErrDataIntegrity indicates extracted data could not be transformed or
	// loaded without producing incomplete analytical rows (missing referenced
	// customer/product, rejected row at load).
	ErrDataIntegrity = errors.New("data integrity violation")

	// ErrConfiguration indicates invalid startup configuration. Fatal, never retried.
	ErrConfiguration = errors.New("invalid configuration")
)
