package level

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevels(t *testing.T) {
	silence := make([]int16, 512)
	assert.Equal(t, 0.0, MeanSquare(silence))
	assert.Equal(t, 0.0, RMS(silence))
	assert.InDelta(t, -100, DBFS(silence), 1e-6)
	assert.Equal(t, 0.0, VU(silence))
	assert.Equal(t, 0.0, MeanSquare(nil))

	full := make([]int16, 512)
	for idx := range full {
		full[idx] = math.MinInt16
		if idx%2 == 1 {
			full[idx] = math.MinInt16 + 1
		}
	}
	assert.InDelta(t, 1, RMS(full), 1e-3)
	assert.InDelta(t, 0, DBFS(full), 1e-2)
	assert.InDelta(t, 1, VU(full), 1e-3)

	// -25 dBFS is the middle of the meter
	amplitude := int16(math.Round(32768 * math.Pow(10, -25.0/20)))
	half := make([]int16, 1024)
	for idx := range half {
		half[idx] = amplitude
		if idx%2 == 1 {
			half[idx] = -amplitude
		}
	}
	assert.InDelta(t, 0.5, VU(half), 1e-3)
}

func TestVUBar(t *testing.T) {
	for _, volume := range []float64{-1, 0, 0.33, 0.5, 1, 2} {
		bar := VUBar(volume)
		require.True(t, strings.HasPrefix(bar, "["))
		require.True(t, strings.HasSuffix(bar, "|"))
		require.Equal(t, len("[100%]")+VUBarLength+1, utf8.RuneCountInString(bar), bar)
	}
	assert.Equal(t, "[ 50%]"+strings.Repeat("█", 15)+strings.Repeat(" ", 15)+"|", VUBar(0.5))
	assert.Equal(t, "[  0%]"+strings.Repeat(" ", 30)+"|", VUBar(0))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[  0%]"+strings.Repeat(" ", 20)+"|", ProgressBar(100, 0))
	assert.Equal(t, "[ 50%]"+strings.Repeat("#", 10)+strings.Repeat(" ", 10)+"|", ProgressBar(100, 50))
	assert.Equal(t, "[100%]"+strings.Repeat("#", 20)+"|", ProgressBar(100, 150))
	assert.Equal(t, "[100%]"+strings.Repeat("#", 20)+"|", ProgressBar(0, 0))
}
