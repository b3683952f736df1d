package media

import "errors"

var (
	// ErrUnreadableMedia means the staged file could not be decoded at all.
	ErrUnreadableMedia = errors.New("unreadable media")
	// ErrNoSignal means decoding worked but produced no usable samples.
	ErrNoSignal = errors.New("no signal in media")
	// ErrStorage wraps failures of the durable asset store.
	ErrStorage = errors.New("asset storage failed")
	// ErrUnsupportedMedia means the upload does not belong to the requested kind.
	ErrUnsupportedMedia = errors.New("unsupported media type")
	// ErrTooLarge means the upload exceeded the staging size limit.
	ErrTooLarge = errors.New("upload too large")
)
