// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The dubbing pipeline uses it to read the reference track duration that
// synthesized speech is aligned to, and to confirm a source file carries
// an audio stream before extraction.
package ffprobe
