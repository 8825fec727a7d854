// Package video integrates with ffmpeg and ffprobe subprocesses to decode
// frames from a media file and to encode raw frames back into a muxed
// container. Frames cross the process boundary as raw bgr24 bytes over pipes.
package video

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/heyjunin/skelevision/pkg/errors"
)

// Metadata holds the stream properties read once when a media file is probed.
type Metadata struct {
	// Width and Height are the video frame dimensions in pixels.
	Width  int
	Height int
	// FPS is the video frame rate.
	FPS float64
	// Frames is the container's frame count. It is an estimate and may be
	// zero when the container does not record it.
	Frames int
	// Duration is the container duration in seconds.
	Duration float64
	// HasAudio reports whether the file carries an audio stream.
	HasAudio bool
	// AudioCodec is the codec name of the first audio stream, if any.
	AudioCodec string
}

// FrameSize returns the byte length of one raw 3-channel frame.
func (m *Metadata) FrameSize() int {
	return m.Width * m.Height * 3
}

// ffprobeOutput mirrors the JSON emitted by ffprobe -show_format -show_streams.
type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width,omitempty"`
		Height    int    `json:"height,omitempty"`
		FrameRate string `json:"r_frame_rate,omitempty"`
		NbFrames  string `json:"nb_frames,omitempty"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe runs ffprobe against the given file and returns its stream metadata.
func Probe(ctx context.Context, path string) (*Metadata, error) {
	cmd := exec.CommandContext(
		ctx,
		"ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, errors.Wrap(err, errors.OpenError, "Failed to probe input file", errors.ErrProbeFailed)
	}

	return parseProbeOutput(output)
}

// parseProbeOutput decodes ffprobe JSON into Metadata.
// Split out from Probe so the parsing can be tested without a real ffprobe.
func parseProbeOutput(output []byte) (*Metadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, errors.Wrap(err, errors.OpenError, "Failed to parse ffprobe output", errors.ErrProbeFailed)
	}

	meta := &Metadata{}
	foundVideo := false

	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if foundVideo {
				continue
			}
			foundVideo = true
			meta.Width = stream.Width
			meta.Height = stream.Height
			meta.FPS = parseRational(stream.FrameRate)
			if n, err := strconv.Atoi(stream.NbFrames); err == nil {
				meta.Frames = n
			}
		case "audio":
			if !meta.HasAudio {
				meta.HasAudio = true
				meta.AudioCodec = stream.CodecName
			}
		}
	}

	if !foundVideo {
		return nil, errors.New(errors.OpenError, "No video stream found", "", errors.ErrNoVideoStream)
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		return nil, errors.New(errors.OpenError, "Invalid video dimensions", fmt.Sprintf("%dx%d", meta.Width, meta.Height), errors.ErrProbeFailed)
	}

	if d, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64); err == nil {
		meta.Duration = d
	}

	// Some containers omit nb_frames; estimate from duration when possible.
	if meta.Frames == 0 && meta.Duration > 0 && meta.FPS > 0 {
		meta.Frames = int(meta.Duration * meta.FPS)
	}

	return meta, nil
}

// parseRational parses ffprobe rate strings such as "30000/1001" or "25".
func parseRational(s string) float64 {
	if s == "" {
		return 0
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		return n / d
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
