package xsq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatValueTruncatesNotRounds(t *testing.T) {
	assert.Equal(t, "0.14", FormatValue(0.149))
}

func TestFormatTimeUsesFourDecimals(t *testing.T) {
	assert.Equal(t, "0.3333", FormatTime(0.33339))
}

func TestFormatDurationSecondsThreeDecimals(t *testing.T) {
	assert.Equal(t, "10.500", FormatDurationSeconds(10500))
}

func TestTruncateNeverRoundsUp(t *testing.T) {
	assert.InDelta(t, 1.99, truncate(1.999, 2), 1e-9)
}
