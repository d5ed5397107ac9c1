// Package tts synthesizes spoken prompts for speech engines that are not backed by a voice pack.
package tts

import (
	"context"
)

// MinAudioSize is the smallest synthesized file accepted as valid (1KB).
// Anything smaller is a failed synthesis.
const MinAudioSize = 1024

// Provider defines the interface for Text-To-Speech engines.
type Provider interface {
	// Synthesize renders text with the given voice to outputPath.
	// Returns the audio format ("mp3", "wav").
	Synthesize(ctx context.Context, text, voice, outputPath string) (string, error)

	// Voices lists the voices the engine offers.
	Voices(ctx context.Context) ([]Voice, error)
}

// Voice represents an available TTS voice.
type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
