package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"dubline/internal/language"
	"dubline/internal/logging"
	"dubline/internal/media/audio"
	"dubline/internal/services"
)

// WhisperX invocation constants.
const (
	DefaultModel      = "large-v3"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BatchSize         = "4"
	ChunkSize         = "15"
	VADOnset          = "0.08"
	VADOffset         = "0.07"
	BeamSize          = "10"
	BestOf            = "10"
	Temperature       = "0.0"
	Patience          = "1.0"
	SegmentResolution = "sentence"
	OutputFormat      = "json"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "float32"
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"
	UVXCommand        = "uvx"
)

// whisperFormat is the input layout WhisperX expects.
var whisperFormat = audio.Format{SampleRate: 16000, Channels: 1, BitDepth: 16}

// Localizer resolves an object URI to a readable local file.
type Localizer interface {
	Localize(ctx context.Context, uri string) (string, error)
}

// WAVDecoder transcodes an audio file into PCM WAV.
type WAVDecoder interface {
	DecodeToWAV(ctx context.Context, source, dest string, format audio.Format) error
}

// WhisperXConfig captures runtime settings for WhisperX.
type WhisperXConfig struct {
	// Model is the WhisperX model (e.g. "large-v3-turbo").
	Model       string
	CUDAEnabled bool
	// VADMethod is "silero" or "pyannote".
	VADMethod string
	// HFToken is required by pyannote VAD.
	HFToken string
	WorkDir string
}

// WhisperX transcribes with a local WhisperX install run through uvx.
type WhisperX struct {
	cfg           WhisperXConfig
	localizer     Localizer
	decoder       WAVDecoder
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewWhisperX creates a WhisperX transcriber.
func NewWhisperX(cfg WhisperXConfig, localizer Localizer, decoder WAVDecoder, logger *slog.Logger) *WhisperX {
	return &WhisperX{
		cfg:       cfg,
		localizer: localizer,
		decoder:   decoder,
		logger:    logging.NewComponentLogger(logger, "whisperx"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *WhisperX) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	w.commandRunner = runner
}

// Model returns the configured model name for logging.
func (w *WhisperX) Model() string {
	if w.cfg.Model != "" {
		return w.cfg.Model
	}
	return DefaultModel
}

// Transcribe implements the pipeline's Transcriber contract.
func (w *WhisperX) Transcribe(ctx context.Context, audioURI, languageHint string) (string, error) {
	source, err := w.localizer.Localize(ctx, audioURI)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "transcribe", "localize", audioURI, err)
	}
	if err := os.MkdirAll(w.cfg.WorkDir, 0o755); err != nil {
		return "", fmt.Errorf("transcribe: ensure work dir: %w", err)
	}
	workDir, err := os.MkdirTemp(w.cfg.WorkDir, "whisperx-")
	if err != nil {
		return "", fmt.Errorf("transcribe: temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	wavPath := filepath.Join(workDir, "reference.wav")
	if err := w.decoder.DecodeToWAV(ctx, source, wavPath, whisperFormat); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "transcribe", "extract audio", "", err)
	}

	started := time.Now()
	text, err := w.TranscribeFile(ctx, wavPath, workDir, languageHint)
	if err != nil {
		return "", err
	}
	logging.WithContext(ctx, w.logger).Info("transcription complete",
		logging.String("model", w.Model()),
		logging.Int("characters", len([]rune(text))),
		logging.Duration("elapsed", time.Since(started)),
	)
	return text, nil
}

// TranscribeFile runs WhisperX on a prepared WAV file and returns the joined
// segment text.
func (w *WhisperX) TranscribeFile(ctx context.Context, source, outputDir, languageHint string) (string, error) {
	if source == "" {
		return "", services.Wrap(services.ErrValidation, "transcribe", "whisperx", "source path required", nil)
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("transcribe: ensure output dir: %w", err)
	}
	if err := w.run(ctx, UVXCommand, w.buildArgs(source, outputDir, languageHint)...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "", err)
	}
	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	text, err := loadTranscriptText(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "transcribe", "whisperx output", "", err)
	}
	return text, nil
}

func (w *WhisperX) run(ctx context.Context, name string, args ...string) error {
	if w.commandRunner != nil {
		return w.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 defaults torch.load to weights_only=true, which breaks pyannote checkpoints.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (w *WhisperX) buildArgs(source, outputDir, languageHint string) []string {
	args := make([]string, 0, 40)
	if w.cfg.CUDAEnabled {
		args = append(args, "--index-url", CUDAIndexURL, "--extra-index-url", PypiIndexURL)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}
	args = append(args,
		"whisperx",
		source,
		"--model", w.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--best_of", BestOf,
		"--temperature", Temperature,
		"--patience", Patience,
	)

	vadMethod := w.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && w.cfg.HFToken != "" {
		args = append(args, "--hf_token", w.cfg.HFToken)
	}
	if lang := language.ToISO2(languageHint); lang != "" {
		args = append(args, "--language", lang)
	}
	if w.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}
	return args
}

// Segment is one transcribed span from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperXPayload struct {
	Segments []Segment `json:"segments"`
}

// LoadSegments loads segments from a WhisperX JSON file.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload.Segments, nil
}

// JoinSegments joins non-blank segment texts with single spaces.
func JoinSegments(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func loadTranscriptText(jsonPath string) (string, error) {
	segments, err := LoadSegments(jsonPath)
	if err != nil {
		return "", err
	}
	return JoinSegments(segments), nil
}
