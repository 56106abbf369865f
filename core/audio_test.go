package core_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storychat/core"
)

func TestEstimateSpeechDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want time.Duration
	}{
		{name: "empty is zero", text: "", want: 0},
		{name: "short text clamps to one second", text: "Hi", want: time.Second},
		{name: "150 chars at 15 chars per second", text: strings.Repeat("a", 150), want: 10 * time.Second},
		{name: "long text clamps to thirty seconds", text: strings.Repeat("a", 2000), want: 30 * time.Second},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, core.EstimateSpeechDuration(tc.text))
		})
	}
}

func TestEstimateSpokenDurationPCMIsExact(t *testing.T) {
	t.Parallel()

	// one second of 16-bit mono at 16 kHz
	clip := &core.AudioClip{
		Data:       make([]byte, 32000),
		Format:     core.AudioFormatPCM,
		SampleRate: 16000,
	}
	require.Equal(t, time.Second, clip.EstimateSpokenDuration())
}

func TestEstimateSpokenDurationFallsBackToText(t *testing.T) {
	t.Parallel()

	clip := &core.AudioClip{
		Text:   strings.Repeat("a", 150),
		Data:   []byte{1, 2, 3},
		Format: core.AudioFormatMP3,
	}
	require.Equal(t, 10*time.Second, clip.EstimateSpokenDuration())

	var nilClip *core.AudioClip
	require.Equal(t, time.Duration(0), nilClip.EstimateSpokenDuration())
}
