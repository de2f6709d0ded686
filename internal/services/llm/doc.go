// Package llm provides an OpenAI-compatible chat completion client (OpenRouter
// by default) used by the dubbing pipeline.
//
// # Entry Points
//
// NewClient: construct a client from Config.
// Client.Translate: render a transcript in a target language, keeping the
// spoken duration close to the source.
// Client.ChooseVoice: pick one voice option for a described speaker; the
// answer is returned as JSON {voice, confidence, reason}.
// Client.CompleteJSON / Client.CompleteText: raw prompt helpers.
// Client.HealthCheck: verify the API key and model are usable.
//
// # Retry Behaviour
//
// HTTP 408/429/5xx, network timeouts and empty completions are tagged transient
// and retried through services.Retry. Retry-After headers raise the wait for
// the next attempt. Context cancellation stops retries immediately.
package llm
