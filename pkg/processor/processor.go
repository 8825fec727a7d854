// Package processor orchestrates one full run: acquire the source video,
// probe it, stream it through the pose pipeline, and clean up. It is the
// library entry point the CLI drives.
package processor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/heyjunin/skelevision/pkg/acquirer"
	"github.com/heyjunin/skelevision/pkg/errors"
	"github.com/heyjunin/skelevision/pkg/logger"
	"github.com/heyjunin/skelevision/pkg/pipeline"
	"github.com/heyjunin/skelevision/pkg/pose"
	"github.com/heyjunin/skelevision/pkg/progress"
	"github.com/heyjunin/skelevision/pkg/video"
)

// Options contains settings for the Processor.
type Options struct {
	// URL is the source video reference.
	URL string
	// VideoID is the logical identifier used to name the temp input and the
	// final output deterministically.
	VideoID string

	// TempDir holds the downloaded input file, keyed by VideoID.
	TempDir string
	// OutputDir holds the final output file, keyed by VideoID.
	OutputDir string

	// WorkerCommand launches the pose inference worker.
	WorkerCommand []string
	// FFmpegBinary overrides the ffmpeg executable. Defaults to "ffmpeg".
	FFmpegBinary string
	// Overwrite reprocesses even when the output file already exists.
	Overwrite bool
}

// FetchFunc resolves a URL into a local file at dest, returning the path.
type FetchFunc func(ctx context.Context, url, dest string) (string, error)

// EstimatorFunc constructs the pose estimator for one run.
type EstimatorFunc func(ctx context.Context) (pose.Estimator, error)

// Processor runs the acquisition and frame pipeline for a single video.
type Processor struct {
	options      Options
	progRep      progress.Reporter
	logger       logger.Logger
	fetch        FetchFunc
	newEstimator EstimatorFunc
}

// New creates a Processor with default dependencies: the yt-dlp/HTTP
// acquirer and the subprocess pose worker.
func New(options Options, progressReporter progress.Reporter) (*Processor, error) {
	return NewWithDeps(options, progressReporter, logger.NewLogger(), nil, nil)
}

// NewWithDeps creates a Processor with custom acquisition and estimator
// construction, used by tests and embedders.
func NewWithDeps(options Options, progressReporter progress.Reporter, log logger.Logger, fetch FetchFunc, newEstimator EstimatorFunc) (*Processor, error) {
	if options.URL == "" {
		return nil, errors.New(errors.ValidationError, "Source URL is required", "", errors.ErrMissingURL)
	}
	if options.VideoID == "" {
		return nil, errors.New(errors.ValidationError, "Video identifier is required", "", errors.ErrMissingVideoID)
	}
	if options.TempDir == "" {
		options.TempDir = "temp"
	}
	if options.OutputDir == "" {
		options.OutputDir = filepath.Join("public", "processed")
	}
	if options.FFmpegBinary == "" {
		options.FFmpegBinary = "ffmpeg"
	}
	if len(options.WorkerCommand) == 0 {
		options.WorkerCommand = []string{"python3", "scripts/pose_worker.py"}
	}
	if log == nil {
		log = logger.NewLogger()
	}

	p := &Processor{
		options: options,
		progRep: progressReporter,
		logger:  log,
	}

	p.fetch = fetch
	if p.fetch == nil {
		p.fetch = func(ctx context.Context, url, dest string) (string, error) {
			acq := acquirer.New(acquirer.Options{
				URL:        url,
				OutputPath: dest,
				Progress:   progressReporter,
			})
			return acq.Fetch(ctx)
		}
	}

	p.newEstimator = newEstimator
	if p.newEstimator == nil {
		p.newEstimator = func(ctx context.Context) (pose.Estimator, error) {
			return pose.StartWorker(ctx, pose.WorkerOptions{Command: options.WorkerCommand})
		}
	}

	return p, nil
}

// InputPath returns the deterministic temp path for the acquired video.
func (p *Processor) InputPath() string {
	return filepath.Join(p.options.TempDir, p.options.VideoID+".mp4")
}

// OutputPath returns the deterministic path of the final output file.
func (p *Processor) OutputPath() string {
	return filepath.Join(p.options.OutputDir, p.options.VideoID+".mp4")
}

// Process runs the whole pipeline for this video.
//
// If the output file already exists (and Overwrite is off) the run is a
// no-op: no acquisition, no processing. Acquisition failures abort before
// any processing. Once streaming starts, failures are downgraded: the sink
// is drained, resources released, and the temp file removed, preferring a
// truncated-but-valid output over a crash with leftovers.
func (p *Processor) Process(ctx context.Context) (string, error) {
	outputPath := p.OutputPath()
	inputPath := p.InputPath()

	if _, err := os.Stat(outputPath); err == nil && !p.options.Overwrite {
		p.logger.Info("Video already processed, skipping", "processor", map[string]interface{}{
			"output": outputPath,
		})
		return outputPath, nil
	}

	if err := p.checkFFmpeg(); err != nil {
		return "", err
	}

	for _, dir := range []string{p.options.TempDir, p.options.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", errors.Wrap(err, errors.SystemError, "Failed to create working directory", errors.ErrDirCreateFailed)
		}
	}

	p.logger.Info("Acquiring source video", "processor", map[string]interface{}{
		"url":  p.options.URL,
		"path": inputPath,
	})
	if _, err := p.fetch(ctx, p.options.URL, inputPath); err != nil {
		return "", err
	}
	defer p.removeTemp(inputPath)

	if err := p.runPipeline(ctx, inputPath, outputPath); err != nil {
		return "", err
	}

	p.logger.Info("Processing complete", "processor", map[string]interface{}{
		"output": outputPath,
	})
	return outputPath, nil
}

// runPipeline probes the acquired file and drives the frame loop.
func (p *Processor) runPipeline(ctx context.Context, inputPath, outputPath string) error {
	meta, err := video.Probe(ctx, inputPath)
	if err != nil {
		return err
	}
	p.logger.Info("Stream metadata", "processor", map[string]interface{}{
		"width":  meta.Width,
		"height": meta.Height,
		"fps":    meta.FPS,
		"frames": meta.Frames,
	})

	estimator, err := p.newEstimator(ctx)
	if err != nil {
		return err
	}

	driver, err := pipeline.New(pipeline.Options{
		OpenSource: func() (pipeline.FrameSource, error) {
			return video.OpenSource(ctx, inputPath, meta, p.options.FFmpegBinary)
		},
		OpenSink: func() (pipeline.FrameSink, error) {
			return video.OpenSink(ctx, video.SinkOptions{
				Width:        meta.Width,
				Height:       meta.Height,
				FPS:          meta.FPS,
				AudioPath:    inputPath,
				OutputPath:   outputPath,
				FFmpegBinary: p.options.FFmpegBinary,
			})
		},
		Estimator:   estimator,
		Width:       meta.Width,
		Height:      meta.Height,
		TotalFrames: meta.Frames,
		Progress:    p.progRep,
		Logger:      p.logger,
	})
	if err != nil {
		estimator.Close()
		return err
	}

	return driver.Run()
}

// removeTemp deletes the acquired input file; it runs on success and on
// processing failure alike.
func (p *Processor) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.logger.Warn(errors.GetErrorMessage(errors.ErrTempFileCleanup), "processor", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}

// checkFFmpeg verifies the ffmpeg binary is runnable before any work starts.
func (p *Processor) checkFFmpeg() error {
	cmd := exec.Command(p.options.FFmpegBinary, "-version")
	if err := cmd.Run(); err != nil {
		return errors.New(errors.SystemError, "FFmpeg is not available", fmt.Sprintf("binary: %s", p.options.FFmpegBinary), errors.ErrDecoderSpawn)
	}
	return nil
}
