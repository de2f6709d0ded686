// Package tts holds the text-to-speech backends the synthesis orchestrator
// calls once per chunk.
//
// Google renders `{languageCode}-{family}-{Profile}` voices (Chirp3-HD by
// default) through the Cloud Text-to-Speech REST API. OpenAI maps the voice
// profile onto one of its fixed speech voices. Both return encoded audio
// bytes; Encoding reports the container so the caller can decode it.
package tts
