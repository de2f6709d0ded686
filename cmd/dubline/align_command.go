package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dubline/internal/media/audio"
	"dubline/internal/media/ffmpeg"
	"dubline/internal/media/ffprobe"
)

func newAlignCommand(ctx *commandContext) *cobra.Command {
	var reference float64
	var referenceFile string
	var outPath string
	var strategy string

	cmd := &cobra.Command{
		Use:   "align <input.wav>",
		Short: "Stretch a WAV file to a reference duration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			referenceFile = strings.TrimSpace(referenceFile)
			switch {
			case referenceFile != "" && cmd.Flags().Changed("reference"):
				return errors.New("use either --reference or --reference-file, not both")
			case referenceFile != "":
				reference, err = ffprobe.New(cfg.FFprobeBinary()).Duration(cmd.Context(), referenceFile)
				if err != nil {
					return err
				}
			case !cmd.Flags().Changed("reference"):
				return errors.New("--reference or --reference-file is required")
			}

			input := args[0]
			seg, err := audio.ReadWAVFile(input)
			if err != nil {
				return err
			}

			local := *cfg
			if strings.TrimSpace(strategy) != "" {
				local.Alignment.Strategy = strategy
			}
			aligner, err := newAligner(&local, ffmpeg.New(cfg.FFmpegBinary()), logger, nil)
			if err != nil {
				return err
			}
			res, err := aligner.Align(cmd.Context(), seg, reference)
			if err != nil {
				return err
			}

			if strings.TrimSpace(outPath) == "" {
				outPath = strings.TrimSuffix(input, ".wav") + "_aligned.wav"
			}
			if err := audio.WriteWAVFile(outPath, res.Segment); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s\n", outPath)
			fmt.Fprintf(out, "Strategy:  %s\n", res.Strategy)
			fmt.Fprintf(out, "Ratio:     %.3f\n", res.SpeedRatio)
			fmt.Fprintf(out, "Duration:  %.3fs (reference %.3fs)\n", res.OutputDuration, res.ReferenceDuration)
			fmt.Fprintf(out, "Deviation: %.4f\n", res.Deviation)
			if !res.WithinTolerance {
				fmt.Fprintf(out, "Warning: deviation exceeds tolerance %.4f\n", cfg.Alignment.Tolerance)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&reference, "reference", 0, "Reference duration in seconds")
	cmd.Flags().StringVar(&referenceFile, "reference-file", "", "Media file whose duration is the reference")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output WAV path (default: <input>_aligned.wav)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Alignment strategy: remap or atempo (default: alignment.strategy)")
	return cmd
}
