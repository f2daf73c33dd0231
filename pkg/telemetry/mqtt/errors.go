package mqtt

import "errors"

// ErrPublishTimeout is returned when the client doesn't complete in time.
var ErrPublishTimeout = errors.New("mqtt: timeout")
