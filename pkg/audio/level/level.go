package level

import (
	"fmt"
	"math"
	"strings"
)

const (
	VUDynamicRangeDB  = 50.0
	VUBarLength       = 30
	ProgressBarLength = 20

	// silenceFloor keeps log10 finite on digital silence.
	silenceFloor = 1e-10
)

// MeanSquare returns the mean power of the samples normalized to [0, 1].
func MeanSquare(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		f := float64(v) / 32768
		sum += f * f
	}
	return sum / float64(len(samples))
}

func RMS(samples []int16) float64 {
	return math.Sqrt(MeanSquare(samples))
}

// DBFS returns the level of the samples relative to the full scale.
func DBFS(samples []int16) float64 {
	return 10 * math.Log10(MeanSquare(samples)+silenceFloor)
}

// VU maps the level onto [0, 1], where 0 is VUDynamicRangeDB below the full scale.
func VU(samples []int16) float64 {
	return clamp01(1 + DBFS(samples)/VUDynamicRangeDB)
}

// VUBar renders a VU meter like "[ 42%]████████████                  |".
func VUBar(volume float64) string {
	volume = clamp01(volume)
	barLength := int(volume * VUBarLength)
	return fmt.Sprintf(
		"[%3d%%]%s%s|",
		int(volume*100),
		strings.Repeat("█", barLength),
		strings.Repeat(" ", VUBarLength-barLength),
	)
}

// ProgressBar renders a progress bar like "[ 50%]##########          |".
func ProgressBar(total, processed uint64) string {
	ratio := 1.0
	if total > 0 {
		ratio = clamp01(float64(processed) / float64(total))
	}
	barLength := int(math.Round(ratio * ProgressBarLength))
	return fmt.Sprintf(
		"[%3d%%]%s%s|",
		int(math.Round(ratio*100)),
		strings.Repeat("#", barLength),
		strings.Repeat(" ", ProgressBarLength-barLength),
	)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
