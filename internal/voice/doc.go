// Package voice defines the fixed set of synthesis voice profiles and the
// profilers that pick one for a source speaker.
//
// The pitch profiler estimates the speaker's fundamental frequency from the
// reference track by autocorrelation and maps it through a gendered band
// table. The LLM profiler describes the same pitch statistics to a chat model
// and validates its answer against the profile set.
package voice
