// Package dubbing drives a dubbing run end to end.
//
// A run fetches the source video, extracts and uploads a FLAC reference
// track, transcribes it and picks a voice profile. It then fans out once per
// target language: translate, chunk, synthesize, align to the reference
// duration, encode MP3, upload and optionally lip-sync. Languages run on a
// bounded pool and never abort one another; each outcome is reported as a
// LanguageResult naming the stage that failed and recorded in the ledger.
//
// The collaborators are narrow consumer-side interfaces so the pipeline can
// be exercised without ffmpeg, cloud storage or network APIs.
package dubbing
