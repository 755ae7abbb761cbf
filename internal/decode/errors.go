package decode

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrCorrupt           = errors.New("corrupt audio stream")
)
