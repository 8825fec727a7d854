// Package pipeline drives the frame-by-frame skeleton extraction loop:
// decode, estimate, render, encode. The loop is strictly sequential; the
// only concurrency is the encoder subprocess on the far side of the sink's
// pipe, which provides natural backpressure through blocking writes.
package pipeline

import (
	"io"

	"github.com/heyjunin/skelevision/pkg/errors"
	"github.com/heyjunin/skelevision/pkg/logger"
	"github.com/heyjunin/skelevision/pkg/pose"
	"github.com/heyjunin/skelevision/pkg/progress"
	"github.com/heyjunin/skelevision/pkg/render"
	"github.com/heyjunin/skelevision/pkg/video"
)

// State is the driver's lifecycle position.
type State int

const (
	// Idle: constructed, Run not yet called.
	Idle State = iota
	// Opening: acquiring the frame source and encode sink.
	Opening
	// Streaming: the per-frame decode/estimate/render/write loop.
	Streaming
	// Draining: closing the sink input and waiting for the encoder to exit.
	Draining
	// Closed: terminal; all resources released, output finalized.
	Closed
	// Failed: terminal; opening failed, nothing was streamed.
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Opening:
		return "opening"
	case Streaming:
		return "streaming"
	case Draining:
		return "draining"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// FrameSource yields sequential raw bgr24 frames. ReadFrame returns io.EOF
// once the stream is exhausted; Close must be safe on every exit path.
type FrameSource interface {
	ReadFrame() ([]byte, error)
	Close() error
}

// FrameSink accepts rendered bgr24 frames in strict decode order. Write may
// block under backpressure. Finish closes the input channel and waits for
// the encoder, returning its failure if the exit status is non-zero.
type FrameSink interface {
	Write(frame []byte) error
	Finish() error
}

// Options configures a Driver.
type Options struct {
	// OpenSource and OpenSink acquire the two ends of the pipeline during
	// the Opening state.
	OpenSource func() (FrameSource, error)
	OpenSink   func() (FrameSink, error)
	// Estimator consumes RGB frames. The driver closes it on every path out
	// of Run, opening failures included.
	Estimator pose.Estimator
	// Width and Height are the frame dimensions shared by source, renderer
	// and sink.
	Width  int
	Height int
	// TotalFrames is the probed frame count estimate, used only for
	// progress reporting.
	TotalFrames int
	// ProgressEvery is the reporting interval in frames. Defaults to 100.
	ProgressEvery int
	// Progress receives frame-count updates. Optional.
	Progress progress.Reporter
	// Logger defaults to the package logger.
	Logger logger.Logger
}

// Driver owns the pipeline state machine. One Driver processes one video;
// Run may be called once.
type Driver struct {
	opts    Options
	state   State
	written int
}

// New creates a Driver in the Idle state.
func New(opts Options) (*Driver, error) {
	if opts.OpenSource == nil || opts.OpenSink == nil {
		return nil, errors.New(errors.ValidationError, "Source and sink constructors are required", "", errors.ErrBadDimensions)
	}
	if opts.Estimator == nil {
		return nil, errors.New(errors.ValidationError, "An estimator is required", "", errors.ErrBadDimensions)
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.New(errors.ValidationError, "Frame dimensions must be positive", "", errors.ErrBadDimensions)
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 100
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewLogger()
	}
	return &Driver{opts: opts, state: Idle}, nil
}

// State returns the driver's current lifecycle state.
func (d *Driver) State() State {
	return d.state
}

// FramesWritten returns the number of frames successfully handed to the sink.
func (d *Driver) FramesWritten() int {
	return d.written
}

// Run executes the pipeline to completion.
//
// Opening failures are returned and leave the driver Failed with any
// already-acquired resource released. Once streaming has begun, per-frame
// failures end the loop early and the pipeline still drains and releases
// everything: the caller gets a truncated-but-valid output and a nil error,
// with the failure reported through the log.
func (d *Driver) Run() error {
	log := d.opts.Logger

	d.state = Opening
	source, err := d.opts.OpenSource()
	if err != nil {
		d.opts.Estimator.Close()
		d.state = Failed
		return err
	}

	sink, err := d.opts.OpenSink()
	if err != nil {
		source.Close()
		d.opts.Estimator.Close()
		d.state = Failed
		return err
	}

	d.state = Streaming
	log.Info("Streaming frames", "pipeline", map[string]interface{}{
		"total_frames": d.opts.TotalFrames,
		"width":        d.opts.Width,
		"height":       d.opts.Height,
	})

	if d.opts.Progress != nil {
		d.opts.Progress.Start(int64(d.opts.TotalFrames))
	}

	rgb := make([]byte, d.opts.Width*d.opts.Height*3)
	frameCount := 0

	for d.state == Streaming {
		frame, err := source.ReadFrame()
		if err == io.EOF {
			d.state = Draining
			break
		}
		if err != nil {
			log.Error("Frame decode failed, stopping stream", "pipeline", map[string]interface{}{
				"frame": frameCount,
				"error": err.Error(),
			})
			d.state = Draining
			break
		}
		frameCount++

		video.SwapRB(rgb, frame)
		landmarks, err := d.opts.Estimator.Estimate(rgb, d.opts.Width, d.opts.Height)
		if err != nil {
			log.Error("Pose estimation failed, stopping stream", "pipeline", map[string]interface{}{
				"frame": frameCount,
				"error": err.Error(),
			})
			d.state = Draining
			break
		}

		rendered := render.Skeleton(landmarks, d.opts.Width, d.opts.Height)

		if err := sink.Write(rendered); err != nil {
			log.Error("Frame write failed, stopping stream", "pipeline", map[string]interface{}{
				"frame": frameCount,
				"error": err.Error(),
			})
			d.state = Draining
			break
		}
		d.written++

		if frameCount%d.opts.ProgressEvery == 0 {
			if d.opts.Progress != nil {
				d.opts.Progress.Update(int64(frameCount), "processing", "Rendering skeleton frames")
			}
			log.Debug("Progress", "pipeline", map[string]interface{}{
				"processed": frameCount,
				"total":     d.opts.TotalFrames,
			})
		}
	}

	d.state = Draining

	if err := sink.Finish(); err != nil {
		log.Warn("Encoder finished with failure", "pipeline", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := source.Close(); err != nil {
		log.Debug("Source close", "pipeline", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := d.opts.Estimator.Close(); err != nil {
		log.Debug("Estimator close", "pipeline", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if d.opts.Progress != nil {
		d.opts.Progress.Complete()
	}

	d.state = Closed
	log.Info("Streaming complete", "pipeline", map[string]interface{}{
		"frames_written": d.written,
	})
	return nil
}
