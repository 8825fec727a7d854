package acquirer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/heyjunin/skelevision/pkg/errors"
	"github.com/heyjunin/skelevision/pkg/logger"
	"github.com/heyjunin/skelevision/pkg/progress"
)

// DefaultFormat is the fixed quality/format policy passed to yt-dlp:
// best mp4 video capped at 720p plus m4a audio, falling back to a single
// combined stream when separate tracks are unavailable.
const DefaultFormat = "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/best[height<=720][ext=mp4]/best[height<=720]"

// Options represents configuration options for the Acquirer.
type Options struct {
	// URL is the web address of the video to acquire.
	URL string
	// OutputPath is the local file system path where the video will be saved.
	OutputPath string
	// Format is the yt-dlp format selector. Defaults to DefaultFormat.
	Format string
	// ToolBinary is the path to the yt-dlp binary. Defaults to "yt-dlp".
	ToolBinary string
	// Timeout sets the maximum time allowed for the acquisition.
	// Defaults to 30 minutes if not specified.
	Timeout time.Duration
	// Progress is an optional progress.Reporter to receive updates on direct downloads.
	Progress progress.Reporter
	// AllowOverride, if true, allows overwriting an existing file at OutputPath.
	// If false and the file exists, acquisition is skipped.
	AllowOverride bool
}

// Acquirer resolves a video URL to a local media file.
// Direct links to media files are fetched over plain HTTP; everything else
// (video platforms, playlist pages) goes through the yt-dlp binary.
// Create instances using New().
type Acquirer struct {
	client  *http.Client
	options Options
}

// New creates a new Acquirer instance configured with the provided options.
func New(options Options) *Acquirer {
	if options.Timeout == 0 {
		options.Timeout = 30 * time.Minute
	}
	if options.Format == "" {
		options.Format = DefaultFormat
	}
	if options.ToolBinary == "" {
		options.ToolBinary = "yt-dlp"
	}

	return &Acquirer{
		client:  &http.Client{Timeout: options.Timeout},
		options: options,
	}
}

// Fetch acquires the video and saves it to OutputPath.
// It handles directory creation, checks for existing files (based on
// AllowOverride), and dispatches to the HTTP or yt-dlp path.
// Returns the final output path upon success, or an error.
func (a *Acquirer) Fetch(ctx context.Context) (string, error) {
	outputDir := filepath.Dir(a.options.OutputPath)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", errors.Wrap(err, errors.SystemError, "Failed to create download directory", errors.ErrDirCreateFailed)
	}

	if _, err := os.Stat(a.options.OutputPath); err == nil && !a.options.AllowOverride {
		logger.Info("File already exists, skipping acquisition", "acquirer", map[string]interface{}{
			"path": a.options.OutputPath,
		})
		return a.options.OutputPath, nil
	}

	if IsDirectMediaURL(a.options.URL) {
		return a.download(ctx)
	}
	return a.resolve(ctx)
}

// IsDirectMediaURL reports whether the URL points straight at a media file,
// in which case a plain HTTP GET is enough and yt-dlp is not needed.
func IsDirectMediaURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(path.Ext(parsed.Path)) {
	case ".mp4", ".mov", ".mkv", ".webm", ".avi":
		return true
	}
	return false
}

// resolve runs yt-dlp to fetch the video with the configured format policy.
func (a *Acquirer) resolve(ctx context.Context) (string, error) {
	if _, err := exec.LookPath(a.options.ToolBinary); err != nil {
		return "", errors.Wrap(err, errors.AcquisitionError, "Download tool not found", errors.ErrAcquireToolMissing)
	}

	logger.Info("Resolving video URL", "acquirer", map[string]interface{}{
		"url":  a.options.URL,
		"path": a.options.OutputPath,
	})

	args := []string{
		"-f", a.options.Format,
		"-o", a.options.OutputPath,
		"--quiet",
		"--no-progress",
		a.options.URL,
	}

	cmd := exec.CommandContext(ctx, a.options.ToolBinary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		details := strings.TrimSpace(stderr.String())
		if details == "" {
			details = err.Error()
		}
		return "", errors.New(errors.AcquisitionError, "Failed to download video", details, errors.ErrAcquireFailed)
	}

	// yt-dlp may append a container extension when the output template has none.
	if _, err := os.Stat(a.options.OutputPath); err != nil {
		return "", errors.Wrap(err, errors.AcquisitionError, "Download finished but output file is missing", errors.ErrAcquireFailed)
	}

	logger.Info("Acquisition completed", "acquirer", map[string]interface{}{
		"path": a.options.OutputPath,
	})

	return a.options.OutputPath, nil
}

// download fetches a direct media URL over HTTP.
func (a *Acquirer) download(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.options.URL, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.AcquisitionError, "Failed to create HTTP request", errors.ErrAcquireFailed)
	}

	logger.Info("Starting direct download", "acquirer", map[string]interface{}{
		"url":  a.options.URL,
		"path": a.options.OutputPath,
	})

	resp, err := a.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.AcquisitionError, "Failed to download file", errors.ErrAcquireFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.AcquisitionError, "HTTP request failed", fmt.Sprintf("Status: %s", resp.Status), errors.ErrAcquireHTTPStatus)
	}

	file, err := os.Create(a.options.OutputPath)
	if err != nil {
		return "", errors.Wrap(err, errors.AcquisitionError, "Failed to create output file", errors.ErrAcquireWriteFailed)
	}
	defer file.Close()

	contentLength := resp.ContentLength
	if contentLength > 0 && a.options.Progress != nil {
		a.options.Progress.Start(contentLength)
	}

	var reader io.Reader = resp.Body
	if a.options.Progress != nil && contentLength > 0 {
		reader = &progressReader{
			reader:   resp.Body,
			reporter: a.options.Progress,
			size:     contentLength,
		}
	}

	if _, err := io.Copy(file, reader); err != nil {
		return "", errors.Wrap(err, errors.AcquisitionError, "Failed to write file", errors.ErrAcquireWriteFailed)
	}

	if a.options.Progress != nil {
		a.options.Progress.Complete()
	}

	logger.Info("Download completed", "acquirer", map[string]interface{}{
		"path": a.options.OutputPath,
	})

	return a.options.OutputPath, nil
}

// progressReader is an internal io.Reader wrapper used to track download progress
// by reporting the number of bytes read via a progress.Reporter.
type progressReader struct {
	reader   io.Reader
	reporter progress.Reporter
	size     int64
	read     int64
}

// Read implements the io.Reader interface for progressReader.
func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.read += int64(n)
		pr.reporter.Update(pr.read, "downloading", "Downloading file")
	}
	return n, err
}
