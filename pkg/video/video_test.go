package video

import (
	"bytes"
	"strings"
	"testing"
)

const sampleProbeJSON = `{
	"streams": [
		{
			"codec_type": "video",
			"codec_name": "h264",
			"width": 1280,
			"height": 720,
			"r_frame_rate": "30000/1001",
			"nb_frames": "901"
		},
		{
			"codec_type": "audio",
			"codec_name": "aac"
		}
	],
	"format": {
		"duration": "30.063000"
	}
}`

func TestParseProbeOutput(t *testing.T) {
	meta, err := parseProbeOutput([]byte(sampleProbeJSON))
	if err != nil {
		t.Fatalf("parseProbeOutput() error = %v", err)
	}

	if meta.Width != 1280 || meta.Height != 720 {
		t.Errorf("dimensions = %dx%d, want 1280x720", meta.Width, meta.Height)
	}
	if got := meta.FPS; got < 29.96 || got > 29.98 {
		t.Errorf("FPS = %f, want ~29.97", got)
	}
	if meta.Frames != 901 {
		t.Errorf("Frames = %d, want 901", meta.Frames)
	}
	if !meta.HasAudio || meta.AudioCodec != "aac" {
		t.Errorf("audio = (%v, %q), want (true, aac)", meta.HasAudio, meta.AudioCodec)
	}
	if meta.Duration < 30 || meta.Duration > 31 {
		t.Errorf("Duration = %f, want ~30.063", meta.Duration)
	}
}

func TestParseProbeOutputEstimatesFrames(t *testing.T) {
	input := `{
		"streams": [{"codec_type": "video", "width": 640, "height": 480, "r_frame_rate": "25"}],
		"format": {"duration": "4.0"}
	}`

	meta, err := parseProbeOutput([]byte(input))
	if err != nil {
		t.Fatalf("parseProbeOutput() error = %v", err)
	}
	if meta.Frames != 100 {
		t.Errorf("Frames = %d, want 100 (duration x fps estimate)", meta.Frames)
	}
}

func TestParseProbeOutputNoVideoStream(t *testing.T) {
	input := `{"streams": [{"codec_type": "audio", "codec_name": "mp3"}], "format": {"duration": "10"}}`

	if _, err := parseProbeOutput([]byte(input)); err == nil {
		t.Fatal("parseProbeOutput() should fail without a video stream")
	}
}

func TestParseProbeOutputMalformed(t *testing.T) {
	if _, err := parseProbeOutput([]byte("not json")); err == nil {
		t.Fatal("parseProbeOutput() should fail on malformed input")
	}
}

func TestParseRational(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"25", 25},
		{"30000/1001", 29.97002997002997},
		{"0/0", 0},
		{"", 0},
		{"abc", 0},
	}
	for _, tt := range tests {
		if got := parseRational(tt.input); got != tt.want {
			t.Errorf("parseRational(%q) = %f, want %f", tt.input, got, tt.want)
		}
	}
}

func TestMetadataFrameSize(t *testing.T) {
	meta := &Metadata{Width: 640, Height: 480}
	if got := meta.FrameSize(); got != 640*480*3 {
		t.Errorf("FrameSize() = %d, want %d", got, 640*480*3)
	}
}

func TestSourceArgs(t *testing.T) {
	args := strings.Join(sourceArgs("in.mp4"), " ")

	for _, want := range []string{"-i in.mp4", "-pix_fmt bgr24", "-vcodec rawvideo", "-f rawvideo"} {
		if !strings.Contains(args, want) {
			t.Errorf("source args missing %q in %q", want, args)
		}
	}
	if !strings.HasSuffix(args, "-") {
		t.Errorf("source args should pipe to stdout, got %q", args)
	}
}

func TestSinkArgs(t *testing.T) {
	opts := SinkOptions{
		Width:      640,
		Height:     480,
		FPS:        30,
		AudioPath:  "in.mp4",
		OutputPath: "out.mp4",
	}
	argv := sinkArgs(opts)
	args := strings.Join(argv, " ")

	for _, want := range []string{
		"-s 640x480",
		"-pix_fmt bgr24",
		"-i -",
		"-i in.mp4",
		"-map 0:v",
		"-map 1:a",
		"-c:v libx264",
		"-preset ultrafast",
		"-c:a copy",
		"-shortest",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("sink args missing %q in %q", want, args)
		}
	}
	if argv[len(argv)-1] != "out.mp4" {
		t.Errorf("output path must be the final argument, got %q", argv[len(argv)-1])
	}
}

func TestSwapRB(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6}
	dst := make([]byte, len(src))

	SwapRB(dst, src)

	want := []byte{3, 2, 1, 6, 5, 4}
	if !bytes.Equal(dst, want) {
		t.Errorf("SwapRB() = %v, want %v", dst, want)
	}

	// Round trip restores the original ordering.
	back := make([]byte, len(src))
	SwapRB(back, dst)
	if !bytes.Equal(back, src) {
		t.Errorf("double SwapRB() = %v, want %v", back, src)
	}
}
