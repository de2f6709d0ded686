// Package synth turns ordered text chunks into one PCM stream.
//
// Each chunk is sent to the TextToSpeech collaborator exactly once (transient
// failures are retried), decoded and normalized to the nominal format, and
// stored in an index-ordered buffer. Chunks run on a bounded worker pool but
// the output is always concatenated in chunk order. The first failure cancels
// the remaining chunks and no partial audio is returned.
package synth
