package persistence

import "errors"

// ErrCorruptSlot is returned when a stored slot cannot be decoded.
var ErrCorruptSlot = errors.New("persistence: corrupt slot payload")
