package pose

// Estimator turns one image into zero or one LandmarkSet.
//
// Implementations may keep internal temporal-smoothing state across calls
// within one video, so callers must supply frames in presentation order and
// call Close exactly once after the last frame. The frame bytes must be
// packed RGB, row-major, 8 bits per channel.
//
// Absence of a detected person is a nil LandmarkSet with a nil error, not a
// failure.
type Estimator interface {
	Estimate(frame []byte, width, height int) (*LandmarkSet, error)
	Close() error
}
