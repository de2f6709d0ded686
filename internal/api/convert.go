package api

import (
	"dubline/internal/ledger"
)

// FromRun converts a ledger run to its API representation.
func FromRun(run *ledger.Run) Run {
	if run == nil {
		return Run{}
	}
	dto := Run{
		ID:                run.ID,
		SourceURI:         run.SourceURI,
		Status:            string(run.Status),
		VoiceProfile:      run.VoiceProfile,
		ReferenceDuration: run.ReferenceDuration,
		ErrorMessage:      run.ErrorMessage,
	}
	if !run.CreatedAt.IsZero() {
		dto.CreatedAt = run.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !run.UpdatedAt.IsZero() {
		dto.UpdatedAt = run.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	if len(run.Languages) > 0 {
		dto.Languages = make([]Language, 0, len(run.Languages))
		for _, rec := range run.Languages {
			dto.Languages = append(dto.Languages, FromLanguageRecord(rec))
		}
	}
	return dto
}

// FromRuns converts a slice of ledger runs into API DTOs.
func FromRuns(runs []*ledger.Run) []Run {
	out := make([]Run, 0, len(runs))
	for _, run := range runs {
		out = append(out, FromRun(run))
	}
	return out
}

// FromLanguageRecord converts one ledger language row.
func FromLanguageRecord(rec ledger.LanguageRecord) Language {
	dto := Language{
		Name:         rec.Name,
		Code:         rec.Code,
		Status:       string(rec.Status),
		Stage:        rec.Stage,
		ErrorMessage: rec.ErrorMessage,
		AudioURI:     rec.AudioURI,
		VideoURI:     rec.VideoURI,
		Chunks:       rec.Chunks,
		SpeedRatio:   rec.SpeedRatio,
		Deviation:    rec.Deviation,
	}
	if !rec.UpdatedAt.IsZero() {
		dto.UpdatedAt = rec.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}
