package e2e

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/heyjunin/skelevision/pkg/pose"
	"github.com/heyjunin/skelevision/pkg/processor"
	"github.com/heyjunin/skelevision/pkg/progress"
	"github.com/heyjunin/skelevision/pkg/video"
	"github.com/stretchr/testify/require"
)

// discardLogger drops all messages.
type discardLogger struct{}

func (l *discardLogger) Debug(msg string, component string, fields map[string]interface{}) {}
func (l *discardLogger) Info(msg string, component string, fields map[string]interface{})  {}
func (l *discardLogger) Warn(msg string, component string, fields map[string]interface{})  {}
func (l *discardLogger) Error(msg string, component string, fields map[string]interface{}) {}
func (l *discardLogger) Fatal(msg string, component string, fields map[string]interface{}) {
	os.Exit(1)
}

// mockProgressReporter is a no-op reporter.
type mockProgressReporter struct{}

func (m *mockProgressReporter) Start(total int64)                 {}
func (m *mockProgressReporter) Update(current int64, _, _ string) {}
func (m *mockProgressReporter) Increment(_, _ string)             {}
func (m *mockProgressReporter) Complete()                         {}
func (m *mockProgressReporter) Updates() <-chan progress.ProgressEvent {
	ch := make(chan progress.ProgressEvent)
	close(ch)
	return ch
}

// nullEstimator detects nothing, so every rendered frame is black.
type nullEstimator struct{}

func (nullEstimator) Estimate(frame []byte, width, height int) (*pose.LandmarkSet, error) {
	return nil, nil
}
func (nullEstimator) Close() error { return nil }

func requireFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not available, skipping e2e test", bin)
		}
	}
}

// generateTestVideo produces a short synthetic clip with video and audio.
func generateTestVideo(t *testing.T, path string) {
	t.Helper()
	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi", "-i", "testsrc=duration=1:size=320x240:rate=10",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=1",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-shortest",
		path,
	)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to generate test video: %s", output)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func TestPipelineEndToEnd(t *testing.T) {
	requireFFmpeg(t)

	dir := t.TempDir()
	srcVideo := filepath.Join(dir, "src.mp4")
	generateTestVideo(t, srcVideo)

	opts := processor.Options{
		URL:       "https://example.com/watch?v=e2e",
		VideoID:   "e2e",
		TempDir:   filepath.Join(dir, "temp"),
		OutputDir: filepath.Join(dir, "out"),
	}

	fetch := func(ctx context.Context, url, dest string) (string, error) {
		return dest, copyFile(srcVideo, dest)
	}
	newEstimator := func(ctx context.Context) (pose.Estimator, error) {
		return nullEstimator{}, nil
	}

	proc, err := processor.NewWithDeps(opts, &mockProgressReporter{}, &discardLogger{}, fetch, newEstimator)
	require.NoError(t, err)

	outputPath, err := proc.Process(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(outputPath)
	require.NoError(t, err, "output file missing")
	require.NotZero(t, info.Size(), "output file is empty")

	// The output must carry the source geometry and a passthrough audio track.
	meta, err := video.Probe(context.Background(), outputPath)
	require.NoError(t, err)
	require.Equal(t, 320, meta.Width)
	require.Equal(t, 240, meta.Height)
	require.True(t, meta.HasAudio, "output should contain the passthrough audio track")

	// The temp input must be cleaned up on success.
	_, err = os.Stat(proc.InputPath())
	require.True(t, os.IsNotExist(err), "temp input file should be removed after a successful run")

	// A second run is a no-op: the fetch must not be called again.
	secondFetchCalls := 0
	proc2, err := processor.NewWithDeps(opts, &mockProgressReporter{}, &discardLogger{}, func(ctx context.Context, url, dest string) (string, error) {
		secondFetchCalls++
		return dest, copyFile(srcVideo, dest)
	}, newEstimator)
	require.NoError(t, err)

	_, err = proc2.Process(context.Background())
	require.NoError(t, err)
	require.Zero(t, secondFetchCalls, "second run must perform no acquisition")
}

func TestSourceReadsAllFrames(t *testing.T) {
	requireFFmpeg(t)

	dir := t.TempDir()
	srcVideo := filepath.Join(dir, "src.mp4")
	generateTestVideo(t, srcVideo)

	ctx := context.Background()
	meta, err := video.Probe(ctx, srcVideo)
	require.NoError(t, err)

	source, err := video.OpenSource(ctx, srcVideo, meta, "")
	require.NoError(t, err)
	defer source.Close()

	frames := 0
	for {
		frame, err := source.ReadFrame()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.Len(t, frame, meta.FrameSize())
		frames++
	}

	// 1 second at 10 fps.
	require.InDelta(t, 10, frames, 2, "decoded frame count")
}
