//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package notebook

import (
	"errors"
	"time"
)

func setLinkTime(string, time.Time) error {
	return errors.New("setting symlink times is not supported on this platform")
}
