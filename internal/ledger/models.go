package ledger

import "time"

// Status is the lifecycle state of a run or a language within a run.
type Status string

const (
	// StatusRunning marks a run or language that has not finished.
	StatusRunning Status = "running"
	// StatusCompleted marks a run whose languages all succeeded.
	StatusCompleted Status = "completed"
	// StatusPartial marks a run where some languages failed.
	StatusPartial Status = "partial"
	// StatusFailed marks a run or language that failed.
	StatusFailed Status = "failed"
	// StatusSucceeded marks a language whose artifacts were uploaded.
	StatusSucceeded Status = "succeeded"
	// StatusInvalid marks a language rejected because of its input.
	StatusInvalid Status = "invalid"
)

// IsTerminal reports whether the status will not change again.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusPartial, StatusFailed, StatusSucceeded, StatusInvalid:
		return true
	default:
		return false
	}
}

// Run is a single dubbing request for one source video.
type Run struct {
	ID                string
	SourceURI         string
	Status            Status
	VoiceProfile      string
	ReferenceDuration float64
	ErrorMessage      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Languages         []LanguageRecord
}

// LanguageRecord captures the outcome of one target language.
type LanguageRecord struct {
	RunID        string
	Name         string
	Code         string
	Status       Status
	Stage        string
	ErrorMessage string
	AudioURI     string
	VideoURI     string
	Chunks       int
	SpeedRatio   float64
	Deviation    float64
	UpdatedAt    time.Time
}

// Succeeded reports whether the language completed.
func (r LanguageRecord) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// Summarize derives the run status from per-language outcomes.
func Summarize(records []LanguageRecord) Status {
	if len(records) == 0 {
		return StatusFailed
	}
	succeeded := 0
	for _, rec := range records {
		if !rec.Status.IsTerminal() {
			return StatusRunning
		}
		if rec.Succeeded() {
			succeeded++
		}
	}
	switch succeeded {
	case len(records):
		return StatusCompleted
	case 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}
