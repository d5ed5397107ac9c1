package tts

import (
	"fmt"
	"os"
)

// VerifyAudioFile checks that a synthesized file exists and is not truncated.
func VerifyAudioFile(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("synthesized file: %w", err)
	}
	if st.Size() < MinAudioSize {
		return fmt.Errorf("synthesized file %s too small (%d bytes)", path, st.Size())
	}
	return nil
}
