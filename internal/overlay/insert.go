package overlay

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/google/uuid"

	"splicer/internal/timecode"
	"splicer/internal/timeline"
)

// ErrNoVideoTrack is returned when inserting into a composition without lanes.
var ErrNoVideoTrack = errors.New("composition has no video track")

// DefaultOpacity is the alpha applied to every inserted overlay.
const DefaultOpacity = 0.8

// Insert layers img over comp for rng at DefaultOpacity. Existing
// instructions are left unchanged.
func Insert(img image.Image, comp *timeline.Composition, rng timecode.Range) error {
	return InsertWithOpacity(img, comp, rng, DefaultOpacity, "")
}

// InsertWithOpacity is Insert with an explicit opacity and label.
func InsertWithOpacity(img image.Image, comp *timeline.Composition, rng timecode.Range, opacity float64, label string) error {
	if comp == nil || !comp.HasVideo() {
		return ErrNoVideoTrack
	}
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrOverlayRenderFailed)
	}
	if rng.Duration.IsNegative() {
		return fmt.Errorf("%w: overlay range %s", timecode.ErrInvalidTimeRange, rng)
	}
	if opacity <= 0 || opacity > 1 {
		opacity = DefaultOpacity
	}
	comp.Overlays = append(comp.Overlays, timeline.Overlay{
		ID:      uuid.NewString(),
		Label:   label,
		Image:   img,
		Range:   rng,
		Opacity: opacity,
	})
	return nil
}

// Caption is one timed transcript line from a speech-to-text collaborator.
type Caption struct {
	Range      timecode.Range `json:"range" yaml:"-"`
	Text       string         `json:"text" yaml:"text"`
	Confidence float64        `json:"confidence" yaml:"confidence"`
}

// CaptionOptions filters and styles captions.
type CaptionOptions struct {
	// MinConfidence drops captions below this confidence.
	MinConfidence float64
	Opacity       float64
}

// InsertCaptions renders each caption on a canvas the size of comp and
// inserts it over the caption's range, clipped to the composition. It
// returns the number of captions inserted.
func InsertCaptions(r *Renderer, comp *timeline.Composition, captions []Caption, opts CaptionOptions) (int, error) {
	if comp == nil || !comp.HasVideo() {
		return 0, ErrNoVideoTrack
	}
	size := image.Pt(comp.Width, comp.Height)
	inserted := 0
	for i, c := range captions {
		text := strings.TrimSpace(c.Text)
		if text == "" || c.Confidence < opts.MinConfidence {
			continue
		}
		rng, ok := c.Range.Intersect(comp.Range())
		if !ok {
			continue
		}
		img, err := r.RenderText(text, size)
		if err != nil {
			return inserted, fmt.Errorf("caption %d: %w", i, err)
		}
		if err := InsertWithOpacity(img, comp, rng, opts.Opacity, text); err != nil {
			return inserted, fmt.Errorf("caption %d: %w", i, err)
		}
		inserted++
	}
	return inserted, nil
}
