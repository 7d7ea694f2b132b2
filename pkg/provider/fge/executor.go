// Package fge wraps an ffmpeg/ffprobe installation as the Filter-Graph
// Executor (FGE) capability: it probes source media and renders a validated
// filter_complex graph to a finished segment file, grounded on
// vividhyeok-djbot/backend/renderer.go's exec.Command/filter_complex pattern.
package fge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"time"
)

// Provider is the Filter-Graph Executor capability.
type Provider interface {
	// ProbeDuration returns the playable duration of the audio file at path.
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)

	// ProbeLoudness returns the integrated loudness (LUFS) of the audio file
	// at path, via a single-pass loudnorm analysis.
	ProbeLoudness(ctx context.Context, path string) (float64, error)

	// Run renders req's filter graph to req.OutputPath.
	Run(ctx context.Context, req RunRequest) error
}

// RunRequest describes one ffmpeg invocation: a set of ordered input files
// (referenced from the graph as [0:a], [1:a], ...), the filter_complex graph
// itself (already built and validated via [Builder]), the output stream
// label to map, and the destination path.
type RunRequest struct {
	Inputs        []string
	FilterComplex string
	OutputMap     string // e.g. "[mix]"
	OutputPath    string
	BitrateKbps   int // 0 selects a reasonable default
}

var _ Provider = (*Executor)(nil)

// Executor shells out to ffmpeg/ffprobe binaries.
type Executor struct {
	FFmpegPath  string
	FFprobePath string
}

// NewExecutor returns an Executor using the given binary paths. Empty strings
// default to "ffmpeg" and "ffprobe" resolved from $PATH.
func NewExecutor(ffmpegPath, ffprobePath string) *Executor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Executor{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

type ffprobeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration implements [Provider].
func (e *Executor) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	args := []string{"-v", "quiet", "-print_format", "json", "-show_format", path}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.FFprobePath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("fge: probe duration: %w: %s", err, stderr.String())
	}

	return parseFFprobeDuration(stdout.Bytes())
}

// parseFFprobeDuration parses the JSON emitted by `ffprobe -show_format` and
// returns the format's duration. Split out from ProbeDuration so the parsing
// logic is testable without invoking the ffprobe binary.
func parseFFprobeDuration(jsonOut []byte) (time.Duration, error) {
	var out ffprobeFormat
	if err := json.Unmarshal(jsonOut, &out); err != nil {
		return 0, fmt.Errorf("fge: probe duration: parse ffprobe output: %w", err)
	}
	secs, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("fge: probe duration: parse duration %q: %w", out.Format.Duration, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

var loudnormJSON = regexp.MustCompile(`(?s)\{.*"input_i".*\}`)

type loudnormReport struct {
	InputI string `json:"input_i"`
}

// ProbeLoudness implements [Provider]. It runs a single-pass loudnorm
// analysis and discards the rendered output, keeping only the measurement
// ffmpeg prints to stderr.
func (e *Executor) ProbeLoudness(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-i", path,
		"-af", "loudnorm=print_format=json",
		"-f", "null", "-",
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.FFmpegPath, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("fge: probe loudness: %w: %s", err, stderr.String())
	}

	return parseLoudnormReport(stderr.String())
}

// parseLoudnormReport extracts the integrated loudness (LUFS) from ffmpeg's
// loudnorm=print_format=json stderr output. Split out from ProbeLoudness so
// the parsing logic is testable without invoking the ffmpeg binary.
func parseLoudnormReport(stderrOutput string) (float64, error) {
	match := loudnormJSON.FindString(stderrOutput)
	if match == "" {
		return 0, fmt.Errorf("fge: probe loudness: no loudnorm report in ffmpeg output")
	}
	var report loudnormReport
	if err := json.Unmarshal([]byte(match), &report); err != nil {
		return 0, fmt.Errorf("fge: probe loudness: parse report: %w", err)
	}
	lufs, err := strconv.ParseFloat(report.InputI, 64)
	if err != nil {
		return 0, fmt.Errorf("fge: probe loudness: parse input_i %q: %w", report.InputI, err)
	}
	return lufs, nil
}

// Run implements [Provider]. The graph in req must already be validated
// (e.g. via [Builder.BuildAndValidate] or [transition.BuildGraph]) — Run
// re-validates defensively before shelling out.
func (e *Executor) Run(ctx context.Context, req RunRequest) error {
	if err := Validate(req.FilterComplex); err != nil {
		return fmt.Errorf("fge: run: %w", err)
	}

	args := []string{"-y"}
	for _, in := range req.Inputs {
		args = append(args, "-i", in)
	}
	args = append(args, "-filter_complex", req.FilterComplex, "-map", req.OutputMap)

	bitrate := req.BitrateKbps
	if bitrate <= 0 {
		bitrate = 192
	}
	args = append(args, "-b:a", fmt.Sprintf("%dk", bitrate), req.OutputPath)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.FFmpegPath, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("fge: run: ffmpeg: %w: %s", err, stderr.String())
	}
	return nil
}
