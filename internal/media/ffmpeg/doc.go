// Package ffmpeg wraps the ffmpeg invocations used by the dubbing pipeline:
// extracting the reference track from the source video, transcoding speech
// synthesis output to PCM WAV, applying the atempo filter, and encoding the
// final MP3 artifact.
//
// Every call goes through a Tool that can swap its command runner, so tests
// assert argument lists without an ffmpeg binary.
package ffmpeg
