package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"dubline/internal/media/audio"
)

// DefaultBinary is the executable used when none is configured.
const DefaultBinary = "ffmpeg"

// atempo only accepts factors in this range per filter instance on older builds.
const (
	minAtempo = 0.5
	maxAtempo = 2.0
)

// Runner executes an external command.
type Runner func(ctx context.Context, name string, args ...string) error

// Tool runs ffmpeg commands.
type Tool struct {
	binary string
	runner Runner
}

// New returns a Tool using binary, or DefaultBinary when empty.
func New(binary string) *Tool {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultBinary
	}
	return &Tool{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (t *Tool) WithCommandRunner(runner Runner) *Tool {
	t.runner = runner
	return t
}

// Binary returns the configured ffmpeg executable.
func (t *Tool) Binary() string {
	return t.binary
}

func (t *Tool) run(ctx context.Context, args ...string) error {
	if t.runner != nil {
		return t.runner(ctx, t.binary, args...)
	}
	cmd := exec.CommandContext(ctx, t.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", t.binary, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ExtractReference writes the source's first audio stream as mono 16-bit FLAC.
func (t *Tool) ExtractReference(ctx context.Context, source, dest string) error {
	if strings.TrimSpace(source) == "" {
		return errors.New("ffmpeg extract: empty source path")
	}
	if err := ensureDir(dest); err != nil {
		return err
	}
	if err := t.run(ctx, ExtractReferenceArgs(source, dest)...); err != nil {
		return fmt.Errorf("ffmpeg extract: %w", err)
	}
	return nil
}

// ExtractReferenceArgs builds the argument list for ExtractReference.
func ExtractReferenceArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-c:a", "flac",
		"-sample_fmt", "s16",
		dest,
	}
}

// DecodeToWAV transcodes any ffmpeg-readable audio file to 16-bit PCM WAV in
// the sample rate and channel layout of format.
func (t *Tool) DecodeToWAV(ctx context.Context, source, dest string, format audio.Format) error {
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return fmt.Errorf("ffmpeg decode: invalid target format %s", format)
	}
	if err := ensureDir(dest); err != nil {
		return err
	}
	if err := t.run(ctx, DecodeToWAVArgs(source, dest, format)...); err != nil {
		return fmt.Errorf("ffmpeg decode: %w", err)
	}
	return nil
}

// DecodeToWAVArgs builds the argument list for DecodeToWAV.
func DecodeToWAVArgs(source, dest string, format audio.Format) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-ac", strconv.Itoa(format.Channels),
		"-ar", strconv.Itoa(format.SampleRate),
		"-c:a", "pcm_s16le",
		dest,
	}
}

// DecodeBytes transcodes an encoded payload (MP3, OGG, WAV...) into a segment
// in the given format. ext names the payload container, e.g. ".mp3".
func (t *Tool) DecodeBytes(ctx context.Context, payload []byte, ext string, format audio.Format) (*audio.Segment, error) {
	dir, err := os.MkdirTemp("", "dubline-decode-")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if ext == "" {
		ext = ".bin"
	}
	src := filepath.Join(dir, "input"+ext)
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		return nil, fmt.Errorf("ffmpeg decode: write input: %w", err)
	}
	dest := filepath.Join(dir, "output.wav")
	if err := t.DecodeToWAV(ctx, src, dest, format); err != nil {
		return nil, err
	}
	seg, err := audio.ReadWAVFile(dest)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode: %w", err)
	}
	return audio.Convert(seg, format)
}

// EncodeMP3 encodes a WAV file to MP3 at the given bitrate (e.g. "192k").
func (t *Tool) EncodeMP3(ctx context.Context, source, dest, bitrate string) error {
	if err := ensureDir(dest); err != nil {
		return err
	}
	if err := t.run(ctx, EncodeMP3Args(source, dest, bitrate)...); err != nil {
		return fmt.Errorf("ffmpeg mp3: %w", err)
	}
	return nil
}

// EncodeMP3Args builds the argument list for EncodeMP3.
func EncodeMP3Args(source, dest, bitrate string) []string {
	if strings.TrimSpace(bitrate) == "" {
		bitrate = "192k"
	}
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-c:a", "libmp3lame",
		"-b:a", bitrate,
		dest,
	}
}

// Atempo changes the tempo of source by ratio without altering pitch. A ratio
// above 1 shortens the audio.
func (t *Tool) Atempo(ctx context.Context, source, dest string, ratio float64) error {
	filter, err := AtempoFilter(ratio)
	if err != nil {
		return err
	}
	if err := ensureDir(dest); err != nil {
		return err
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-filter:a", filter,
		"-c:a", "pcm_s16le",
		dest,
	}
	if err := t.run(ctx, args...); err != nil {
		return fmt.Errorf("ffmpeg atempo: %w", err)
	}
	return nil
}

// AtempoFilter returns an atempo filter chain whose product equals ratio, with
// every stage inside the range all ffmpeg versions accept.
func AtempoFilter(ratio float64) (string, error) {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return "", fmt.Errorf("atempo ratio must be positive and finite (got %v)", ratio)
	}
	var stages []string
	remaining := ratio
	for remaining > maxAtempo {
		stages = append(stages, formatTempo(maxAtempo))
		remaining /= maxAtempo
	}
	for remaining < minAtempo {
		stages = append(stages, formatTempo(minAtempo))
		remaining /= minAtempo
	}
	stages = append(stages, formatTempo(remaining))
	return strings.Join(stages, ","), nil
}

func formatTempo(v float64) string {
	return "atempo=" + strconv.FormatFloat(v, 'f', 6, 64)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure output dir: %w", err)
	}
	return nil
}
