//go:build !linux

// internal/hal/gpiod_other.go

package hal

import (
	"errors"
	"runtime"
)

// OpenGpiod is only available on Linux.
func OpenGpiod(chip string, offset int) (Pin, error) {
	return nil, errors.New("gpiod: character device GPIO is not available on " + runtime.GOOS)
}
