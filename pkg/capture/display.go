package capture

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"time"

	"github.com/kbinani/screenshot"
)

// Display captures a single physical display by index.
type Display struct {
	index int
}

// NewDisplay returns a Capturer for the given display index. An index past
// the number of attached displays falls back to the primary display.
func NewDisplay(index uint) *Display {
	return &Display{index: int(index)}
}

func (d *Display) Capture(ctx context.Context) (Shot, error) {
	if err := ctx.Err(); err != nil {
		return Shot{}, err
	}

	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return Shot{}, fmt.Errorf("%w: no active displays", ErrUnavailable)
	}

	idx := d.index
	if idx >= n {
		idx = 0
	}

	img, err := screenshot.CaptureRect(screenshot.GetDisplayBounds(idx))
	if err != nil {
		return Shot{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Shot{}, fmt.Errorf("encoding screenshot: %w", err)
	}

	bounds := img.Bounds()
	return Shot{
		PNG:     buf.Bytes(),
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		TakenAt: time.Now(),
	}, nil
}
