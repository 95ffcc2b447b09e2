package domain

import "errors"

var (
	// ErrInference is returned when a completion request fails or returns nothing
	ErrInference = errors.New("inference failed")
	// ErrTranscription is returned when speech-to-text fails
	ErrTranscription = errors.New("transcription failed")
	// ErrImageGeneration is returned when no image URL could be obtained
	ErrImageGeneration = errors.New("image generation failed")
	// ErrTransport is returned when sending or saving through the chat client fails
	ErrTransport = errors.New("transport failed")
)
