// pkg/logger/errors.go
package logger

import "errors"

var (
	ErrInvalidLevel      = errors.New("logger: invalid level")
	ErrInvalidFormat     = errors.New("logger: invalid format")
	ErrMissingOutputPath = errors.New("logger: output path required when file output enabled")
)
