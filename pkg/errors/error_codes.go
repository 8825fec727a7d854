package errors

// Error codes grouped per component.
const (
	// AcquisitionError codes (1000-1099)
	ErrAcquireFailed       = 1000
	ErrAcquireHTTPStatus   = 1001
	ErrAcquireToolMissing  = 1002
	ErrAcquireWriteFailed  = 1003

	// OpenError codes (1100-1199)
	ErrProbeFailed     = 1100
	ErrNoVideoStream   = 1101
	ErrDecoderSpawn    = 1102
	ErrSinkSpawn       = 1103
	ErrEstimatorSpawn  = 1104

	// InferenceError codes (1200-1299)
	ErrWorkerProtocol = 1200
	ErrWorkerExited   = 1201

	// EncodeError codes (1300-1399)
	ErrFrameWrite = 1300
	ErrSinkExit   = 1301

	// ValidationError codes (1400-1499)
	ErrMissingURL      = 1400
	ErrMissingVideoID  = 1401
	ErrBadDimensions   = 1402

	// SystemError codes (1500-1599)
	ErrDirCreateFailed = 1500
	ErrTempFileCleanup = 1501
)
