package video

// SwapRB copies src into dst while swapping the first and third channel of
// every pixel, converting bgr24 to rgb24 or back. Both slices must hold
// whole pixels and dst must be at least as long as src.
func SwapRB(dst, src []byte) {
	for i := 0; i+2 < len(src); i += 3 {
		dst[i] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i]
	}
}
