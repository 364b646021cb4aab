package googletts

import (
	"bytes"
	"fmt"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// ProbeDuration decodes an MP3 just far enough to report how long it plays.
func ProbeDuration(audio []byte) (time.Duration, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(audio))
	if err != nil {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}
	if d.SampleRate() == 0 || d.Length() <= 0 {
		return 0, fmt.Errorf("decode mp3: unknown length")
	}

	// go-mp3 always decodes to 16-bit stereo: 4 bytes per sample.
	samples := d.Length() / 4
	return time.Duration(samples) * time.Second / time.Duration(d.SampleRate()), nil
}
