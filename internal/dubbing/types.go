package dubbing

import (
	"context"
	"errors"
	"strings"

	"dubline/internal/align"
	"dubline/internal/ledger"
	"dubline/internal/media/audio"
	"dubline/internal/notifications"
	"dubline/internal/synth"
	"dubline/internal/textchunk"
	"dubline/internal/voice"
)

// Pipeline stages, used in logs, metrics and LanguageResult.Stage.
const (
	StageFetch      = "fetch"
	StageExtract    = "extract"
	StageProbe      = "probe"
	StageTranscribe = "transcribe"
	StageVoice      = "voice"
	StageTranslate  = "translate"
	StageChunk      = "chunk"
	StageSynthesize = "synthesize"
	StageAlign      = "align"
	StageEncode     = "encode"
	StageUpload     = "upload"
	StageLipSync    = "lipsync"
)

// ErrRunLocked is returned when another process holds the run directory.
var ErrRunLocked = errors.New("run is locked by another process")

// ObjectStore fetches source media and receives dubbed artifacts.
type ObjectStore interface {
	Fetch(ctx context.Context, bucket, key string) (string, error)
	Upload(ctx context.Context, bucket, key, localPath string) (string, error)
	URI(bucket, key string) string
}

// Transcriber converts reference audio to source language text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURI, languageHint string) (string, error)
}

// Translator renders the transcript in a target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// VoiceProfiler picks the speaker profile used for every language.
type VoiceProfiler interface {
	Classify(ctx context.Context, audioURI string) (voice.Profile, error)
}

// Synthesizer turns ordered chunks into one audio segment.
type Synthesizer interface {
	Synthesize(ctx context.Context, chunks []textchunk.Chunk, v synth.Voice) (*audio.Segment, error)
}

// Aligner stretches synthesized audio to the reference duration.
type Aligner interface {
	Align(ctx context.Context, seg *audio.Segment, referenceSeconds float64) (align.Result, error)
}

// MediaTool performs the ffmpeg work the pipeline needs.
type MediaTool interface {
	ExtractReference(ctx context.Context, source, dest string) error
	EncodeMP3(ctx context.Context, source, dest, bitrate string) error
}

// Prober measures media duration in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Ledger persists run and language outcomes.
type Ledger interface {
	CreateRun(ctx context.Context, id, sourceURI string) (*ledger.Run, error)
	SetRunDetails(ctx context.Context, id, voiceProfile string, referenceDuration float64) error
	RecordLanguage(ctx context.Context, rec ledger.LanguageRecord) error
	FinishRun(ctx context.Context, id string, status ledger.Status, message string) error
}

// Notifier announces finished runs. Runs that fail before any language
// starts are reported through NotifyError instead.
type Notifier interface {
	NotifyRunFinished(ctx context.Context, summary notifications.RunSummary) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
}

// Request starts a whole run.
type Request struct {
	// RunID names the run; a random one is assigned when empty.
	RunID string
	// Bucket defaults to storage.bucket.
	Bucket   string
	VideoKey string
	// Languages selects table entries by name or code; empty means all.
	Languages []string
}

// LanguageRequest dubs one language of an existing run whose reference
// track was already uploaded.
type LanguageRequest struct {
	RunID    string
	Bucket   string
	Language string
	// Transcript skips transcription when set.
	Transcript string
	// VideoKey enables lip sync against that object when set.
	VideoKey string
}

// LanguageResult is the outcome of one target language.
type LanguageResult struct {
	Name   string
	Code   string
	Status ledger.Status
	// Stage is the last stage reached; on failure the stage that failed.
	Stage    string
	Err      error
	AudioURI string
	VideoURI string
	Chunks   int
	// Alignment is populated once the align stage succeeds.
	Alignment *align.Result
}

// Succeeded reports whether every stage completed.
func (r LanguageResult) Succeeded() bool {
	return r.Status == ledger.StatusSucceeded
}

// Record converts the result into its ledger row.
func (r LanguageResult) Record(runID string) ledger.LanguageRecord {
	rec := ledger.LanguageRecord{
		RunID:    runID,
		Name:     r.Name,
		Code:     r.Code,
		Status:   r.Status,
		Stage:    r.Stage,
		AudioURI: r.AudioURI,
		VideoURI: r.VideoURI,
		Chunks:   r.Chunks,
	}
	if r.Err != nil {
		rec.ErrorMessage = strings.TrimSpace(r.Err.Error())
	}
	if r.Alignment != nil {
		rec.SpeedRatio = r.Alignment.SpeedRatio
		rec.Deviation = r.Alignment.Deviation
	}
	return rec
}

// RunReport summarizes a finished run.
type RunReport struct {
	RunID             string
	SourceURI         string
	ReferenceURI      string
	ReferenceDuration float64
	Transcript        string
	VoiceProfile      voice.Profile
	Status            ledger.Status
	Languages         []LanguageResult
}

// Failed returns the languages that did not succeed.
func (r *RunReport) Failed() []LanguageResult {
	var failed []LanguageResult
	for _, lang := range r.Languages {
		if !lang.Succeeded() {
			failed = append(failed, lang)
		}
	}
	return failed
}

func (r *RunReport) records() []ledger.LanguageRecord {
	records := make([]ledger.LanguageRecord, 0, len(r.Languages))
	for _, lang := range r.Languages {
		records = append(records, lang.Record(r.RunID))
	}
	return records
}
