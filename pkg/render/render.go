// Package render rasterizes a detected pose onto a blank canvas.
//
// The output is a raw bgr24 byte buffer sized exactly like the decoded input
// frame, so frame count and geometry parity with the source stream is
// preserved for muxing.
package render

import (
	"github.com/heyjunin/skelevision/pkg/pose"
)

type color [3]byte

// Drawing style, fixed compiled-in policy: white connection lines, green
// keypoint markers, both thickness 2. Byte order is B, G, R.
var (
	lineColor   = color{255, 255, 255}
	markerColor = color{0, 255, 0}
)

const (
	lineThickness = 2
	markerRadius  = 2
)

// Skeleton renders the landmark set onto an all-black width×height bgr24
// canvas and returns it. A nil landmark set yields the untouched black
// canvas. Keypoints at or below the visibility threshold are skipped, for
// markers and for the lines they would anchor.
//
// Skeleton is a pure function of its inputs; it keeps no state between calls.
func Skeleton(landmarks *pose.LandmarkSet, width, height int) []byte {
	canvas := make([]byte, width*height*3)
	if landmarks == nil {
		return canvas
	}

	for _, conn := range pose.Connections {
		a, b := conn[0], conn[1]
		if !landmarks.Visible(a) || !landmarks.Visible(b) {
			continue
		}
		x0, y0 := toPixel(landmarks.Landmarks[a], width, height)
		x1, y1 := toPixel(landmarks.Landmarks[b], width, height)
		drawLine(canvas, width, height, x0, y0, x1, y1, lineColor)
	}

	for i := range landmarks.Landmarks {
		if !landmarks.Visible(i) {
			continue
		}
		x, y := toPixel(landmarks.Landmarks[i], width, height)
		drawDisc(canvas, width, height, x, y, markerRadius, markerColor)
	}

	return canvas
}

// toPixel scales normalized coordinates into pixel space, clamped to the
// canvas bounds.
func toPixel(l pose.Landmark, width, height int) (int, int) {
	x := int(l.X * float64(width))
	y := int(l.Y * float64(height))
	return clamp(x, 0, width-1), clamp(y, 0, height-1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// setPixel writes one bgr pixel, ignoring out-of-bounds coordinates.
func setPixel(canvas []byte, width, height, x, y int, c color) {
	if x < 0 || x >= width || y < 0 || y >= height {
		return
	}
	i := (y*width + x) * 3
	canvas[i] = c[0]
	canvas[i+1] = c[1]
	canvas[i+2] = c[2]
}

// drawDisc fills a circle of the given radius around (cx, cy).
func drawDisc(canvas []byte, width, height, cx, cy, radius int, c color) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				setPixel(canvas, width, height, cx+dx, cy+dy, c)
			}
		}
	}
}

// drawLine draws a thick segment between two pixel coordinates using
// Bresenham stepping, stamping a small disc at each step for thickness.
func drawLine(canvas []byte, width, height, x0, y0, x1, y1 int, c color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		drawDisc(canvas, width, height, x0, y0, lineThickness/2, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
