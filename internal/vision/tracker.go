package vision

import "image"

// Template tracker tuning. The search is a sampled sum-of-absolute-
// differences over a small neighborhood, so a position update costs the
// same regardless of how many identities are enrolled.
const (
	trackerSearchRadius = 24  // pixels searched around the last position
	trackerSearchStep   = 4   // offset stride within the search window
	trackerSampleStep   = 4   // pixel stride when scoring a candidate
	trackerLostScore    = 48. // mean absolute luma error that counts as lost
)

// TemplateTracker follows a face by matching a grayscale template of the
// seeded region against a local neighborhood in later frames.
type TemplateTracker struct {
	template []uint8 // sampled luma values of the seeded region
	tw, th   int     // template dimensions before sampling
	box      Box
}

// NewTemplateTracker seeds a tracker at the detected box.
// Implements TrackerFactory.
func NewTemplateTracker(img *image.RGBA, box Box) Tracker {
	box = box.Intersect(img.Bounds())
	t := &TemplateTracker{box: box, tw: box.Dx(), th: box.Dy()}
	t.template = sampleLuma(img, box)
	return t
}

// Update searches around the previous position and returns the best
// matching box. Returns false once the region has drifted out of the frame
// or no longer resembles the template.
func (t *TemplateTracker) Update(img *image.RGBA) (Box, bool) {
	if len(t.template) == 0 || t.box.Empty() {
		return t.box, false
	}

	bestScore := -1.0
	bestBox := t.box

	for dy := -trackerSearchRadius; dy <= trackerSearchRadius; dy += trackerSearchStep {
		for dx := -trackerSearchRadius; dx <= trackerSearchRadius; dx += trackerSearchStep {
			candidate := t.box.Add(image.Pt(dx, dy))
			if !candidate.In(img.Bounds()) {
				continue
			}
			score := t.score(img, candidate)
			if bestScore < 0 || score < bestScore {
				bestScore = score
				bestBox = candidate
			}
		}
	}

	if bestScore < 0 || bestScore > trackerLostScore {
		return t.box, false
	}

	t.box = bestBox
	return bestBox, true
}

// score computes the mean absolute luma difference between the template
// and the candidate region.
func (t *TemplateTracker) score(img *image.RGBA, box Box) float64 {
	var sum, n float64
	i := 0
	for y := box.Min.Y; y < box.Max.Y; y += trackerSampleStep {
		for x := box.Min.X; x < box.Max.X; x += trackerSampleStep {
			if i >= len(t.template) {
				return sum / maxf(n, 1)
			}
			diff := float64(luma(img, x, y)) - float64(t.template[i])
			if diff < 0 {
				diff = -diff
			}
			sum += diff
			n++
			i++
		}
	}
	return sum / maxf(n, 1)
}

func sampleLuma(img *image.RGBA, box Box) []uint8 {
	var out []uint8
	for y := box.Min.Y; y < box.Max.Y; y += trackerSampleStep {
		for x := box.Min.X; x < box.Max.X; x += trackerSampleStep {
			out = append(out, luma(img, x, y))
		}
	}
	return out
}

// luma approximates perceived brightness from RGB (integer BT.601 weights).
func luma(img *image.RGBA, x, y int) uint8 {
	c := img.RGBAAt(x, y)
	return uint8((299*int(c.R) + 587*int(c.G) + 114*int(c.B)) / 1000)
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
