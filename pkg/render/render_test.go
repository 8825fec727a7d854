package render

import (
	"bytes"
	"testing"

	"github.com/heyjunin/skelevision/pkg/pose"
)

func blankSet() *pose.LandmarkSet {
	return &pose.LandmarkSet{Landmarks: make([]pose.Landmark, pose.NumLandmarks)}
}

func pixelAt(canvas []byte, width, x, y int) [3]byte {
	i := (y*width + x) * 3
	return [3]byte{canvas[i], canvas[i+1], canvas[i+2]}
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func TestSkeletonNoLandmarks(t *testing.T) {
	canvas := Skeleton(nil, 64, 48)

	if len(canvas) != 64*48*3 {
		t.Fatalf("canvas length = %d, want %d", len(canvas), 64*48*3)
	}
	if !allZero(canvas) {
		t.Error("canvas should be all-zero when no landmarks are present")
	}
}

func TestSkeletonAllBelowThreshold(t *testing.T) {
	set := blankSet()
	for i := range set.Landmarks {
		set.Landmarks[i] = pose.Landmark{X: 0.5, Y: 0.5, Visibility: 0.4}
	}

	canvas := Skeleton(set, 64, 48)

	if !allZero(canvas) {
		t.Error("canvas should be all-zero when every keypoint is below the visibility threshold")
	}
}

func TestSkeletonThresholdIsExclusive(t *testing.T) {
	set := blankSet()
	set.Landmarks[pose.Nose] = pose.Landmark{X: 0.5, Y: 0.5, Visibility: pose.DefaultVisibility}

	if !allZero(Skeleton(set, 64, 48)) {
		t.Error("a keypoint exactly at the threshold should not be drawn")
	}
}

func TestSkeletonConnectedPair(t *testing.T) {
	const width, height = 640, 480

	set := blankSet()
	set.Landmarks[pose.LeftShoulder] = pose.Landmark{X: 0.25, Y: 0.5, Visibility: 0.9}
	set.Landmarks[pose.RightShoulder] = pose.Landmark{X: 0.75, Y: 0.5, Visibility: 0.9}

	canvas := Skeleton(set, width, height)

	if allZero(canvas) {
		t.Fatal("canvas should contain the drawn connection")
	}

	// The shoulders connect along the horizontal at y=240; the midpoint
	// lies on the line and far from both markers.
	if got := pixelAt(canvas, width, 320, 240); got != [3]byte{255, 255, 255} {
		t.Errorf("midpoint pixel = %v, want white line color", got)
	}

	// Markers are drawn after lines, so the endpoints show the marker color.
	if got := pixelAt(canvas, width, 160, 240); got != [3]byte{0, 255, 0} {
		t.Errorf("endpoint pixel = %v, want green marker color", got)
	}

	// A pixel well off the line stays black.
	if got := pixelAt(canvas, width, 320, 100); got != [3]byte{0, 0, 0} {
		t.Errorf("off-line pixel = %v, want black", got)
	}
}

func TestSkeletonOneEndpointHidden(t *testing.T) {
	set := blankSet()
	set.Landmarks[pose.LeftShoulder] = pose.Landmark{X: 0.25, Y: 0.5, Visibility: 0.9}
	set.Landmarks[pose.RightShoulder] = pose.Landmark{X: 0.75, Y: 0.5, Visibility: 0.1}

	canvas := Skeleton(set, 640, 480)

	// No connection is drawn, only the single visible marker.
	if got := pixelAt(canvas, 640, 320, 240); got != [3]byte{0, 0, 0} {
		t.Errorf("midpoint pixel = %v, want black (no line)", got)
	}
	if got := pixelAt(canvas, 640, 160, 240); got != [3]byte{0, 255, 0} {
		t.Errorf("visible endpoint pixel = %v, want green marker", got)
	}
}

func TestSkeletonClampsOutOfRangeCoordinates(t *testing.T) {
	set := blankSet()
	set.Landmarks[pose.LeftShoulder] = pose.Landmark{X: -0.5, Y: 2.0, Visibility: 0.9}
	set.Landmarks[pose.RightShoulder] = pose.Landmark{X: 1.5, Y: -1.0, Visibility: 0.9}

	// Must not panic; coordinates clamp to the canvas edges.
	canvas := Skeleton(set, 64, 48)
	if allZero(canvas) {
		t.Error("clamped keypoints should still be drawn")
	}
}

func TestSkeletonIsPure(t *testing.T) {
	set := blankSet()
	set.Landmarks[pose.LeftHip] = pose.Landmark{X: 0.4, Y: 0.6, Visibility: 0.8}
	set.Landmarks[pose.RightHip] = pose.Landmark{X: 0.6, Y: 0.6, Visibility: 0.8}

	first := Skeleton(set, 320, 240)
	second := Skeleton(set, 320, 240)

	if !bytes.Equal(first, second) {
		t.Error("two calls with identical inputs should produce identical canvases")
	}
}
