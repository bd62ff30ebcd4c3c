//go:build !(darwin || linux)

package simpleble

import "github.com/sirupsen/logrus"

// DefaultLibraryName is the file name Open falls back to when no path is
// configured.
func DefaultLibraryName() string {
	return "simpleble-c.dll"
}

// Open is not available on this platform.
func Open(_ string, _ *logrus.Logger) (*Lib, error) {
	return nil, ErrUnsupportedPlatform
}
