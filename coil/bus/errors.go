package bus

import "errors"

// Bus errors
var (
	// ErrExtensionAlreadyBound is returned by Group.AddExtension when a
	// second Extension is attached to the same Group.
	ErrExtensionAlreadyBound = errors.New("bus: an extension is already registered on this group")
)
