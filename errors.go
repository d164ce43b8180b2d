package imgport

import "errors"

// Errors returned by ports and images. Call sites wrap them with context;
// match with errors.Is.
var (
	// ErrCapacityExceeded is returned by ConnectTo when the inport already
	// holds as many connections as it accepts.
	ErrCapacityExceeded = errors.New("imgport: connection capacity exceeded")

	// ErrNotEditable is returned when an outport is asked to mutate data it
	// does not own.
	ErrNotEditable = errors.New("imgport: outport data is not editable")

	// ErrAlreadyConnected is returned by ConnectTo for an existing connection.
	ErrAlreadyConnected = errors.New("imgport: already connected")

	// ErrNilOutport is returned when a nil outport is passed to ConnectTo.
	ErrNilOutport = errors.New("imgport: nil outport")

	// ErrInvalidSize is returned for sizes with a non-positive side.
	ErrInvalidSize = errors.New("imgport: invalid size")

	// ErrNoLayers is returned when an image would have no color layer.
	ErrNoLayers = errors.New("imgport: image has no color layer")

	// ErrLayerMismatch is returned when two images or layers cannot be paired
	// up (different layer layout, or a layer whose size differs from its image).
	ErrLayerMismatch = errors.New("imgport: layer layout mismatch")
)
