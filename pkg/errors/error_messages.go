package errors

// ErrorMessages maps error codes to standard human-readable messages.
var ErrorMessages = map[int]string{
	// AcquisitionError
	ErrAcquireFailed:      "Could not download the source video. Check the URL and your network connection.",
	ErrAcquireHTTPStatus:  "The video server returned an unexpected HTTP status.",
	ErrAcquireToolMissing: "The download tool (yt-dlp) is not installed or not on PATH.",
	ErrAcquireWriteFailed: "Failed to write the downloaded video to disk.",

	// OpenError
	ErrProbeFailed:    "Could not read stream metadata from the input file. The file may be corrupt.",
	ErrNoVideoStream:  "The input file contains no video stream.",
	ErrDecoderSpawn:   "Failed to start the ffmpeg decoder process. Check that ffmpeg is installed.",
	ErrSinkSpawn:      "Failed to start the ffmpeg encoder process. Check that ffmpeg is installed.",
	ErrEstimatorSpawn: "Failed to start the pose estimation worker process.",

	// InferenceError
	ErrWorkerProtocol: "The pose worker returned a malformed response.",
	ErrWorkerExited:   "The pose worker exited before the stream was finished.",

	// EncodeError
	ErrFrameWrite: "Failed to write a frame to the encoder. The encoder process may have exited early.",
	ErrSinkExit:   "The encoder process exited with a non-zero status.",

	// ValidationError
	ErrMissingURL:     "A source video URL is required.",
	ErrMissingVideoID: "A video identifier is required.",
	ErrBadDimensions:  "Frame dimensions must be positive.",

	// SystemError
	ErrDirCreateFailed: "Failed to create a working directory. Check filesystem permissions.",
	ErrTempFileCleanup: "Failed to remove a temporary file.",
}

// GetErrorMessage returns the standard message for an error code.
func GetErrorMessage(code int) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return "Unknown error."
}
