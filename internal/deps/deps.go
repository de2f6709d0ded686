package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"dubline/internal/config"
	"dubline/internal/transcribe"
)

// Requirement defines an external binary the pipeline shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries needed by the backends cfg selects.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{Name: "FFmpeg", Command: cfg.FFmpegBinary(), Description: "reference extraction, MP3 encoding, atempo"},
		{Name: "FFprobe", Command: cfg.FFprobeBinary(), Description: "reference duration probing"},
	}
	if cfg.Transcription.Provider == config.TranscriptionWhisperX {
		reqs = append(reqs, Requirement{Name: "uvx", Command: transcribe.UVXCommand, Description: "runs WhisperX transcription"})
	}
	if cfg.LipSync.Enabled && cfg.LipSync.Provider == config.LipSyncWav2Lip {
		reqs = append(reqs, Requirement{Name: "Python", Command: cfg.LipSync.PythonBinary, Description: "runs Wav2Lip inference"})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
