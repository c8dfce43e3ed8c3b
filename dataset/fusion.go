package dataset

import (
	"math"
)

// ratioChannel returns 1 - clamp(vh/vv, 0, 1). A zero vv or a NaN ratio
// counts as ratio 0, so the channel saturates at 1.
func ratioChannel(vv, vh float64) float64 {
	r := 0.0
	if vv != 0 {
		r = vh / vv
	}
	if math.IsNaN(r) {
		r = 0
	}
	r = math.Max(0, math.Min(1, r))
	return 1 - r
}

// Fuse stacks two co-registered polarization planes in [0,1] into a
// channel-first 3 x len(vv) composite: vv, vh and the derived ratio channel.
func Fuse(vv, vh []float64) []float32 {
	n := len(vv)
	out := make([]float32, 3*n)
	for i := range vv {
		out[i] = float32(vv[i])
		out[n+i] = float32(vh[i])
		out[2*n+i] = float32(ratioChannel(vv[i], vh[i]))
	}
	return out
}
