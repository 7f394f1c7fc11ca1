package conversation

import "errors"

var (
	// ErrStaleSession is returned when a step was computed against an
	// incarnation that has since been replaced or cancelled.
	ErrStaleSession = errors.New("conversation session was restarted")

	ErrNoSession   = errors.New("no active conversation session")
	ErrUnknownFlow = errors.New("unknown conversation flow")
)
