package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/kozaktomas/smart-presence/internal/frame"
	"github.com/kozaktomas/smart-presence/internal/settings"
	"github.com/kozaktomas/smart-presence/internal/vision"
)

// runCycle executes one pass of the recognition loop. Every step reads its
// tuning from the settings cache, so settings writes take effect on the
// next cycle without a restart.
func (e *Engine) runCycle(ctx context.Context) {
	now := e.now()
	mode := e.settings.Mode(ctx)

	e.syncDetector(ctx)

	f := e.input.Latest()
	if f == nil {
		e.publishStatus(true)
		return
	}

	sched, err := e.activeSchedule(ctx, mode, now)
	if err != nil {
		e.metrics.StoreErrors.Inc()
		e.log.Error().Err(err).Msg("schedule lookup failed, keeping previous session")
	} else {
		e.syncSession(sched, now)
	}

	interval := e.settings.Milliseconds(ctx, settings.KeyDetectionInterval)
	if mode != settings.ModeForceOff && e.detector != nil &&
		(e.lastDetection.IsZero() || now.Sub(e.lastDetection) >= interval) {
		e.runDetection(ctx, f)
		e.lastDetection = now
	} else {
		// Between detections the pool only refreshes positions; in
		// force_off mode detection is skipped entirely but existing boxes
		// keep following their targets for display continuity.
		e.trackers.Update(f.Image)
	}

	if mode != settings.ModeForceOff {
		for _, identity := range e.trackers.VisibleIdentities() {
			e.recordSighting(ctx, identity, now)
		}
		e.scanDisappearances(ctx, now)
	}

	e.render(ctx, f, mode)
	e.metrics.CyclesTotal.Inc()
	e.publishStatus(true)
}

// syncDetector rebuilds the detector when the DETECTOR_MODEL setting
// changes. Existing trackers are dropped since box geometry is not
// comparable across detector implementations.
func (e *Engine) syncDetector(ctx context.Context) {
	name := e.settings.Get(ctx, settings.KeyDetectorModel)
	if name == e.detectorName && e.detector != nil {
		return
	}

	det, err := vision.NewDetector(name)
	if err != nil {
		e.log.Error().Err(err).Str("model", name).Msg("detector swap failed, keeping current detector")
		// Remember the requested name so the failure is not re-logged
		// every cycle until the setting changes again.
		e.detectorName = name
		return
	}

	e.detector = det
	e.detectorName = name
	e.trackers.Reset()
	e.log.Info().Str("model", name).Msg("detector ready")
}

// runDetection performs the expensive half of a cycle: downscale, detect,
// encode, match and reconcile the tracker pool.
func (e *Engine) runDetection(ctx context.Context, f *frame.Frame) {
	e.metrics.DetectionsTotal.Inc()

	scale := e.settings.Float(ctx, settings.KeyDetectionScale)
	small := vision.Downscale(f.Image, scale)

	boxes, err := e.detector.Detect(small)
	if err != nil {
		e.metrics.DetectionErrors.Inc()
		e.log.Warn().Err(err).Msg("face detection failed, skipping cycle")
		return
	}

	var obs []observation
	if len(boxes) > 0 {
		vectors, err := e.encoder.Encode(small, boxes)
		if err != nil {
			e.metrics.DetectionErrors.Inc()
			e.log.Warn().Err(err).Msg("face encoding failed, skipping cycle")
			return
		}

		tolerance := e.settings.Float(ctx, settings.KeyTolerance)
		for i, box := range boxes {
			identity := vision.Unknown
			if i < len(vectors) {
				if name, dist, ok := e.matcher.Nearest(vectors[i]); ok && dist < tolerance {
					identity = name
				}
			}
			obs = append(obs, observation{
				box:      vision.ScaleBox(box, scale),
				identity: identity,
			})
		}
	}

	e.trackers.Apply(f.Image, obs)
}

// render draws the tracked boxes and the status overlay onto a copy of the
// frame and publishes the encoded result for streaming consumers.
func (e *Engine) render(ctx context.Context, f *frame.Frame, mode settings.Mode) {
	annotated := f.Clone()
	if annotated == nil {
		return
	}

	for _, o := range e.trackers.Snapshot() {
		frame.LabelBox(annotated.Image, o.box, o.identity, o.identity != vision.Unknown)
	}

	overlay := fmt.Sprintf("mode: %s | scale: %.2fx | fps: %.1f",
		strings.ToUpper(string(mode)),
		e.settings.Float(ctx, settings.KeyDetectionScale),
		e.source.FPS(),
	)
	frame.DrawLabel(annotated.Image, overlay, 8, 16, frame.ColorOverlay)

	data, err := frame.EncodeJPEG(annotated.Image)
	if err != nil {
		e.log.Warn().Err(err).Msg("frame encode failed")
		return
	}
	e.output.Publish(data)
}
