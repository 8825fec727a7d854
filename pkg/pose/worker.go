package pose

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"os/exec"

	"github.com/heyjunin/skelevision/pkg/errors"
	"github.com/heyjunin/skelevision/pkg/logger"
)

// frameRequest is one inference request sent to the worker, a single JSON
// line on its stdin. Data is the base64-encoded raw RGB frame.
type frameRequest struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   string `json:"data"`
}

// frameResponse is one inference result read from the worker, a single JSON
// line on its stdout. Landmarks is null when no person was detected.
type frameResponse struct {
	Landmarks []Landmark `json:"landmarks"`
	Error     string     `json:"error,omitempty"`
}

// WorkerOptions configures the worker subprocess.
type WorkerOptions struct {
	// Command is the worker executable and its arguments, e.g.
	// ["python3", "scripts/pose_worker.py"].
	Command []string
}

// Worker is an Estimator backed by an external inference process. Frames go
// to the worker's stdin as JSON lines and results come back on its stdout in
// the same order, one response per request. The worker owns the model's
// temporal-smoothing state; the exchange is strictly synchronous, so frame
// order is preserved by construction.
type Worker struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	closed bool
}

// StartWorker spawns the worker process and wires up its pipes.
// Worker stderr is streamed into the application log.
func StartWorker(ctx context.Context, opts WorkerOptions) (*Worker, error) {
	if len(opts.Command) == 0 {
		return nil, errors.New(errors.ValidationError, "Worker command is required", "", errors.ErrEstimatorSpawn)
	}

	cmd := exec.CommandContext(ctx, opts.Command[0], opts.Command[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, errors.OpenError, "Failed to create worker stdin pipe", errors.ErrEstimatorSpawn)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, errors.OpenError, "Failed to create worker stdout pipe", errors.ErrEstimatorSpawn)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, errors.OpenError, "Failed to create worker stderr pipe", errors.ErrEstimatorSpawn)
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, errors.OpenError, "Failed to start pose worker", errors.ErrEstimatorSpawn)
	}

	go logStderr(stderr)

	return &Worker{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
	}, nil
}

// logStderr forwards worker stderr lines into the log so model warnings are
// not silently dropped.
func logStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.Debug(scanner.Text(), "pose-worker", nil)
	}
}

// Estimate sends one RGB frame to the worker and blocks for its result.
// A nil LandmarkSet means no person was detected.
func (w *Worker) Estimate(frame []byte, width, height int) (*LandmarkSet, error) {
	req := frameRequest{
		Width:  width,
		Height: height,
		Data:   base64.StdEncoding.EncodeToString(frame),
	}

	line, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.InferenceError, "Failed to encode frame request", errors.ErrWorkerProtocol)
	}
	line = append(line, '\n')

	if _, err := w.stdin.Write(line); err != nil {
		return nil, errors.Wrap(err, errors.InferenceError, "Pose worker is not accepting frames", errors.ErrWorkerExited)
	}

	respLine, err := w.stdout.ReadBytes('\n')
	if err != nil {
		return nil, errors.Wrap(err, errors.InferenceError, "Pose worker closed its output", errors.ErrWorkerExited)
	}

	return decodeResponse(respLine)
}

// decodeResponse parses one worker response line into a LandmarkSet.
func decodeResponse(line []byte) (*LandmarkSet, error) {
	var resp frameResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, errors.Wrap(err, errors.InferenceError, "Malformed worker response", errors.ErrWorkerProtocol)
	}
	if resp.Error != "" {
		return nil, errors.New(errors.InferenceError, "Worker reported an inference failure", resp.Error, errors.ErrWorkerProtocol)
	}
	if resp.Landmarks == nil {
		return nil, nil
	}
	if len(resp.Landmarks) != NumLandmarks {
		return nil, errors.New(errors.InferenceError, "Unexpected landmark count", "", errors.ErrWorkerProtocol)
	}
	return &LandmarkSet{Landmarks: resp.Landmarks}, nil
}

// Close shuts the worker down: the closed stdin signals end of stream and
// the process is reaped. Safe to call more than once.
func (w *Worker) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.stdin != nil {
		w.stdin.Close()
	}
	if w.cmd != nil {
		return w.cmd.Wait()
	}
	return nil
}
