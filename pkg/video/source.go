package video

import (
	"context"
	"io"
	"os/exec"

	"github.com/heyjunin/skelevision/pkg/errors"
)

// Source decodes a media file into sequential raw bgr24 frames by piping
// ffmpeg's rawvideo output. Frames are produced lazily in presentation order;
// once the stream is consumed a fresh OpenSource is required to re-iterate.
type Source struct {
	path        string
	meta        *Metadata
	framebuffer []byte
	pipe        io.ReadCloser
	cmd         *exec.Cmd
	closed      bool
}

// OpenSource spawns the ffmpeg decoder for the given file.
// The caller must Close the source on every exit path.
func OpenSource(ctx context.Context, path string, meta *Metadata, ffmpegBinary string) (*Source, error) {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		return nil, errors.New(errors.ValidationError, "Invalid frame dimensions", "", errors.ErrBadDimensions)
	}

	cmd := exec.CommandContext(ctx, ffmpegBinary, sourceArgs(path)...)
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, errors.OpenError, "Failed to create decoder pipe", errors.ErrDecoderSpawn)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, errors.OpenError, "Failed to start decoder process", errors.ErrDecoderSpawn)
	}

	return &Source{
		path:        path,
		meta:        meta,
		framebuffer: make([]byte, meta.FrameSize()),
		pipe:        pipe,
		cmd:         cmd,
	}, nil
}

// sourceArgs builds the ffmpeg argument list for raw bgr24 decoding to stdout.
func sourceArgs(path string) []string {
	return []string{
		"-i", path,
		"-f", "rawvideo",
		"-loglevel", "quiet",
		"-pix_fmt", "bgr24",
		"-vcodec", "rawvideo",
		"-",
	}
}

// Metadata returns the stream metadata the source was opened with.
func (s *Source) Metadata() *Metadata {
	return s.meta
}

// ReadFrame returns the next decoded frame in bgr24 byte order.
// The returned slice is the source's internal framebuffer: it is only valid
// until the next ReadFrame call and must not be retained.
// Returns io.EOF when the stream is exhausted.
func (s *Source) ReadFrame() ([]byte, error) {
	if s.closed {
		return nil, io.EOF
	}
	if _, err := io.ReadFull(s.pipe, s.framebuffer); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}
	return s.framebuffer, nil
}

// Close releases the pipe and reaps the decoder process. Safe to call more
// than once.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.pipe != nil {
		s.pipe.Close()
	}
	if s.cmd != nil {
		return s.cmd.Wait()
	}
	return nil
}
