// Package transcribe turns reference audio into source-language text.
//
// Two backends satisfy the pipeline's Transcriber contract:
//   - WhisperX: runs `uvx whisperx` locally on a 16 kHz mono WAV and joins the
//     JSON segment texts.
//   - OpenAI: uploads the audio to the Whisper transcription endpoint.
//
// Both take an object URI, resolve it to a local file through a Localizer,
// and return trimmed text. An empty transcript is not an error.
package transcribe
