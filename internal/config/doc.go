// Package config loads, normalizes, and validates dubline configuration.
//
// Configuration lives in a TOML file (default ~/.config/dubline/config.toml)
// and is decoded on top of Default(). After decoding, normalize() expands
// paths, lower-cases enumerations, and pulls secrets from well known
// environment variables (GOOGLE_API_KEY, OPENAI_API_KEY, OPENROUTER_API_KEY,
// COS_SECRET_ID, COS_SECRET_KEY, LIPSYNC_API_KEY, HF_TOKEN). Validate checks
// structural settings; ValidateProviders additionally checks that every
// selected backend has the credentials it needs and is only invoked by
// commands that talk to external services.
//
// The resulting *Config is read-only and handed to component constructors;
// nothing in the module reads the environment after Load returns.
package config
