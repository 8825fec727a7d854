package video

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/heyjunin/skelevision/pkg/errors"
)

// SinkOptions configures the encode sink process.
type SinkOptions struct {
	// Width and Height are the raw frame dimensions fed on stdin.
	Width  int
	Height int
	// FPS is the frame rate declared for the raw stream.
	FPS float64
	// AudioPath is the original media file whose audio track is passed
	// through unmodified into the output.
	AudioPath string
	// OutputPath is the muxed container file to produce.
	OutputPath string
	// FFmpegBinary overrides the ffmpeg executable. Defaults to "ffmpeg".
	FFmpegBinary string
}

// Sink is an owned ffmpeg encoder process. Raw bgr24 frames written with
// Write are re-encoded to H.264 and muxed with the audio track of AudioPath,
// truncated to the shorter of the two streams. Lifecycle: OpenSink, Write
// per frame in decode order, Finish exactly once.
type Sink struct {
	opts      SinkOptions
	frameSize int
	pipe      io.WriteCloser
	cmd       *exec.Cmd
	stderr    bytes.Buffer
	finished  bool
}

// OpenSink spawns the ffmpeg encoder with its stdin as the raw frame channel.
func OpenSink(ctx context.Context, opts SinkOptions) (*Sink, error) {
	if opts.FFmpegBinary == "" {
		opts.FFmpegBinary = "ffmpeg"
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.New(errors.ValidationError, "Invalid frame dimensions", fmt.Sprintf("%dx%d", opts.Width, opts.Height), errors.ErrBadDimensions)
	}

	sink := &Sink{
		opts:      opts,
		frameSize: opts.Width * opts.Height * 3,
	}

	cmd := exec.CommandContext(ctx, opts.FFmpegBinary, sinkArgs(opts)...)
	cmd.Stderr = &sink.stderr

	pipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, errors.OpenError, "Failed to create encoder pipe", errors.ErrSinkSpawn)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, errors.OpenError, "Failed to start encoder process", errors.ErrSinkSpawn)
	}

	sink.pipe = pipe
	sink.cmd = cmd
	return sink, nil
}

// sinkArgs builds the ffmpeg argument list: raw bgr24 video on stdin, audio
// copied from the original file, output truncated to the shorter stream.
func sinkArgs(opts SinkOptions) []string {
	return []string{
		"-y",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-vcodec", "rawvideo",
		"-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-pix_fmt", "bgr24",
		"-r", fmt.Sprintf("%.6f", opts.FPS),
		"-i", "-",
		"-i", opts.AudioPath,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		"-shortest",
		opts.OutputPath,
	}
}

// Write appends one raw frame to the encoder's input channel.
// It blocks when the encoder cannot keep up; that backpressure is expected
// and not an error. A pipe failure (encoder exited early) is returned as an
// encode error and the sink should then be finished.
func (k *Sink) Write(frame []byte) error {
	if len(frame) != k.frameSize {
		return errors.New(errors.ValidationError, "Frame has wrong byte length", fmt.Sprintf("got %d, want %d", len(frame), k.frameSize), errors.ErrBadDimensions)
	}
	total := 0
	for total < len(frame) {
		n, err := k.pipe.Write(frame[total:])
		if err != nil {
			return errors.Wrap(err, errors.EncodeError, "Failed to write frame to encoder", errors.ErrFrameWrite)
		}
		total += n
	}
	return nil
}

// Finish closes the input channel and blocks until the encoder process exits.
// A non-zero exit status is returned as an encode error carrying the process
// stderr. Safe to call more than once; only the first call does the work.
func (k *Sink) Finish() error {
	if k.finished {
		return nil
	}
	k.finished = true

	if k.pipe != nil {
		k.pipe.Close()
	}
	if err := k.cmd.Wait(); err != nil {
		details := k.stderr.String()
		if exitErr, ok := err.(*exec.ExitError); ok {
			details = fmt.Sprintf("exit code %d: %s", exitErr.ExitCode(), details)
		}
		return errors.New(errors.EncodeError, "Encoder process exited with failure", details, errors.ErrSinkExit)
	}
	return nil
}
