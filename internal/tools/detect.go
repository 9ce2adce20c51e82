package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"splicer/internal/config"
	"splicer/internal/runner"
)

// ErrToolNotFound is returned when a required executable cannot be located.
var ErrToolNotFound = errors.New("tool not found")

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// Resolve returns the ffmpeg and ffprobe executables, preferring explicit
// config paths over the system PATH.
func Resolve(cfg config.ToolsConfig) (Paths, error) {
	ffmpeg, _, err := locate("ffmpeg", cfg.FFmpeg)
	if err != nil {
		return Paths{}, err
	}
	ffprobe, _, err := locate("ffprobe", cfg.FFprobe)
	if err != nil {
		return Paths{}, err
	}
	return Paths{FFmpeg: ffmpeg, FFprobe: ffprobe}, nil
}

func locate(name, configured string) (string, Source, error) {
	if configured = strings.TrimSpace(configured); configured != "" {
		info, err := os.Stat(configured)
		if err != nil {
			return "", SourceConfig, fmt.Errorf("%w: %s configured at %s: %v", ErrToolNotFound, name, configured, err)
		}
		if info.IsDir() {
			return "", SourceConfig, fmt.Errorf("%w: %s configured at %s is a directory", ErrToolNotFound, name, configured)
		}
		return configured, SourceConfig, nil
	}
	def, _ := Definition(name)
	path, err := lookPath(def.Executable)
	if err != nil {
		return "", SourceSystem, fmt.Errorf("%w: %s not found in PATH", ErrToolNotFound, def.Executable)
	}
	return path, SourceSystem, nil
}

// Detect returns the status of each required tool. ffmpeg is additionally
// checked for the encoders and filters the export graph uses.
func Detect(ctx context.Context, cfg config.ToolsConfig, r runner.Runner) ([]Status, error) {
	if r == nil {
		return nil, errors.New("tools: nil runner")
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	configured := map[string]string{"ffmpeg": cfg.FFmpeg, "ffprobe": cfg.FFprobe}
	var statuses []Status
	for _, name := range KnownTools() {
		def, _ := Definition(name)
		status := detectOne(ctx, r, def, configured[name], cfg.MinimumVersion)
		if name == "ffmpeg" && status.Path != "" && status.Error == "" {
			missing, err := missingCapabilities(ctx, r, status.Path)
			if err != nil {
				status.Notes = append(status.Notes, fmt.Sprintf("capability probe failed: %v", err))
			} else if len(missing) > 0 {
				status.Missing = missing
				status.Satisfied = false
				status.Error = "missing " + strings.Join(missing, ", ")
			}
		}
		if !status.Satisfied {
			status.Notes = append(status.Notes, hostRemediation(status)...)
		}
		statuses = append(statuses, status)
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Tool < statuses[j].Tool })
	return statuses, nil
}

func detectOne(ctx context.Context, r runner.Runner, def ToolDefinition, configured, minimum string) Status {
	if strings.TrimSpace(minimum) == "" {
		minimum = def.MinimumVersion
	}
	status := Status{Tool: def.Name, Minimum: minimum}

	path, source, err := locate(def.Name, configured)
	status.Source = source
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Path = path

	version, err := readVersion(ctx, r, def, path)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Version = version
	status.Satisfied = meetsMinimum(version, minimum)
	if !status.Satisfied {
		status.Error = fmt.Sprintf("version %s below minimum %s", version, minimum)
	}
	return status
}

func missingCapabilities(ctx context.Context, r runner.Runner, ffmpeg string) ([]string, error) {
	encoders, err := r.Run(ctx, ffmpeg, []string{"-hide_banner", "-encoders"}, runner.Options{})
	if err != nil {
		return nil, fmt.Errorf("list encoders: %w", err)
	}
	filters, err := r.Run(ctx, ffmpeg, []string{"-hide_banner", "-filters"}, runner.Options{})
	if err != nil {
		return nil, fmt.Errorf("list filters: %w", err)
	}

	var missing []string
	haveEncoders := listedNames(string(encoders.Stdout))
	for _, name := range RequiredEncoders {
		if !haveEncoders[name] {
			missing = append(missing, "encoder "+name)
		}
	}
	haveFilters := listedNames(string(filters.Stdout))
	for _, name := range RequiredFilters {
		if !haveFilters[name] {
			missing = append(missing, "filter "+name)
		}
	}
	return missing, nil
}

// listedNames extracts the name column of `ffmpeg -encoders` / `-filters`
// listings, where each entry is a flags column followed by the name.
func listedNames(listing string) map[string]bool {
	names := map[string]bool{}
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		names[fields[1]] = true
	}
	return names
}
