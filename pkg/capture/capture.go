// Package capture grabs the screen as a PNG for attaching to model calls.
package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"time"
)

// ErrUnavailable is returned when the screen cannot be captured, for example
// in a headless session or when the platform denies recording permission.
var ErrUnavailable = errors.New("screen capture unavailable")

// Shot is one captured frame, already encoded.
type Shot struct {
	PNG     []byte
	Width   int
	Height  int
	TakenAt time.Time
}

// Empty reports whether the shot carries no image data.
func (s Shot) Empty() bool {
	return len(s.PNG) == 0
}

// Base64 returns the PNG encoded for embedding in provider payloads.
func (s Shot) Base64() string {
	return base64.StdEncoding.EncodeToString(s.PNG)
}

// Capturer produces screenshots. Capture must respect ctx cancellation and
// wrap platform failures in ErrUnavailable so callers can classify them.
type Capturer interface {
	Capture(ctx context.Context) (Shot, error)
}
