package tools

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"splicer/internal/runner"
)

func readVersion(ctx context.Context, r runner.Runner, def ToolDefinition, path string) (string, error) {
	res, err := r.Run(ctx, path, []string{def.VersionSwitch}, runner.Options{})
	if err != nil {
		return "", fmt.Errorf("%s version: %w", def.Name, err)
	}
	line := firstLine(strings.TrimSpace(string(res.Stdout)))
	if line == "" {
		return "", fmt.Errorf("%s version: empty output", def.Name)
	}
	return normalizeFFmpegVersion(line), nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}

// Matches "ffmpeg version 6.1.1-3ubuntu5" as well as "ffprobe version n7.0".
var ffmpegVersionRegex = regexp.MustCompile(`version n?([0-9]+(?:\.[0-9]+){0,2})`)

func normalizeFFmpegVersion(line string) string {
	match := ffmpegVersionRegex.FindStringSubmatch(line)
	if match == nil {
		return line
	}
	return match[1]
}

func meetsMinimum(version, minimum string) bool {
	if minimum == "" {
		return true
	}
	if version == "" {
		return false
	}

	vParts := numericParts(version)
	mParts := numericParts(minimum)
	if len(vParts) == 0 {
		// Git snapshot builds ("N-113684-g...") carry no release number.
		return true
	}
	for len(vParts) < len(mParts) {
		vParts = append(vParts, 0)
	}
	for len(mParts) < len(vParts) {
		mParts = append(mParts, 0)
	}
	for i := 0; i < len(vParts) && i < len(mParts); i++ {
		if vParts[i] > mParts[i] {
			return true
		}
		if vParts[i] < mParts[i] {
			return false
		}
	}
	return true
}

func numericParts(version string) []int {
	var parts []int
	current := strings.Builder{}
	for _, r := range version {
		if r >= '0' && r <= '9' {
			current.WriteRune(r)
			continue
		}
		if r != '.' {
			break
		}
		if current.Len() > 0 {
			val, _ := strconv.Atoi(current.String())
			parts = append(parts, val)
			current.Reset()
		}
	}
	if current.Len() > 0 {
		val, _ := strconv.Atoi(current.String())
		parts = append(parts, val)
	}
	return parts
}
