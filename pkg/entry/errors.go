package entry

import "errors"

var (
	// ErrSubscribeTimeout is returned when the server does not acknowledge a
	// subscribe command within the request timeout. The returned error wraps
	// it together with the timeout duration.
	ErrSubscribeTimeout = errors.New("subscription response timeout")

	// ErrInvalidKind is returned when a subscribe or unsubscribe is called
	// with a kind from the wrong family.
	ErrInvalidKind = errors.New("invalid subscription kind")
)
