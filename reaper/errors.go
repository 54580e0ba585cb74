package reaper

import "errors"

// ErrClosed is returned by Flush after the reaper has been closed.
var ErrClosed = errors.New("reaper: reaper is closed")
