package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"dubline/internal/api"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func statusLabel(status string, colorize bool) string {
	if !colorize {
		return status
	}
	switch status {
	case "completed", "succeeded":
		return ansiGreen + status + ansiReset
	case "partial", "running":
		return ansiYellow + status + ansiReset
	case "failed", "invalid":
		return ansiRed + status + ansiReset
	default:
		return status
	}
}

func formatSeconds(v float64) string {
	if v <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2fs", v)
}

func formatRatio(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.3f", v)
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func renderRunList(runs []api.Run, colorize bool) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			statusLabel(run.Status, colorize),
			dash(run.VoiceProfile),
			formatSeconds(run.ReferenceDuration),
			dash(run.CreatedAt),
			dash(run.SourceURI),
		})
	}
	return renderTable(
		[]column{
			{title: "Run"},
			{title: "Status"},
			{title: "Voice"},
			{title: "Reference", right: true},
			{title: "Created"},
			{title: "Source", maxWidth: 60},
		},
		rows,
	)
}

func renderRunDetail(run api.Run, colorize bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run:       %s\n", run.ID)
	fmt.Fprintf(&b, "Status:    %s\n", statusLabel(run.Status, colorize))
	fmt.Fprintf(&b, "Source:    %s\n", dash(run.SourceURI))
	fmt.Fprintf(&b, "Voice:     %s\n", dash(run.VoiceProfile))
	fmt.Fprintf(&b, "Reference: %s\n", formatSeconds(run.ReferenceDuration))
	if run.ErrorMessage != "" {
		fmt.Fprintf(&b, "Error:     %s\n", run.ErrorMessage)
	}
	if len(run.Languages) == 0 {
		return b.String()
	}
	rows := make([][]string, 0, len(run.Languages))
	for _, lang := range run.Languages {
		output := lang.AudioURI
		if lang.VideoURI != "" {
			output = lang.VideoURI
		}
		if lang.ErrorMessage != "" {
			output = lang.ErrorMessage
		}
		rows = append(rows, []string{
			lang.Name,
			lang.Code,
			statusLabel(lang.Status, colorize),
			dash(lang.Stage),
			fmt.Sprintf("%d", lang.Chunks),
			formatRatio(lang.SpeedRatio),
			dash(output),
		})
	}
	b.WriteString("\n")
	b.WriteString(renderTable(
		[]column{
			{title: "Language"},
			{title: "Code"},
			{title: "Status"},
			{title: "Stage"},
			{title: "Chunks", right: true},
			{title: "Ratio", right: true},
			{title: "Output", maxWidth: 60},
		},
		rows,
	))
	b.WriteString("\n")
	return b.String()
}
