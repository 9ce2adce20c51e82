package tools

import (
	"fmt"
	"runtime"
	"strings"
)

// remediation returns follow-up notes for an unsatisfied tool status,
// chosen by what went wrong: absent executable, old version, or a build
// lacking encoders or filters the export graph uses.
func remediation(status Status, goos string) []string {
	if status.Satisfied {
		return nil
	}
	switch {
	case status.Path == "":
		hints := []string{packageHint(goos, false)}
		if status.Source == SourceConfig {
			hints = append(hints, fmt.Sprintf("or fix tools.%s in splicer.yaml", status.Tool))
		} else {
			hints = append(hints, fmt.Sprintf("or set tools.%s in splicer.yaml to an explicit path", status.Tool))
		}
		if status.Tool == "ffprobe" {
			hints = append(hints, "ffprobe ships in the same package as ffmpeg")
		}
		return hints
	case len(status.Missing) > 0:
		return []string{
			"this ffmpeg build lacks " + strings.Join(status.Missing, ", "),
			packageHint(goos, true),
		}
	case status.Minimum != "" && !meetsMinimum(status.Version, status.Minimum):
		return []string{
			fmt.Sprintf("upgrade %s to %s or newer", status.Tool, status.Minimum),
			packageHint(goos, false),
		}
	}
	return nil
}

func packageHint(goos string, fullBuild bool) string {
	switch goos {
	case "darwin":
		return "Install ffmpeg via Homebrew: brew install ffmpeg"
	case "linux":
		if fullBuild {
			return "Install a full ffmpeg build, e.g. the distro package (sudo apt install ffmpeg) rather than a minimal static one"
		}
		return "Install ffmpeg with your distro package manager, e.g. sudo apt install ffmpeg"
	case "windows":
		if fullBuild {
			return "Install the full build via winget: winget install Gyan.FFmpeg"
		}
		return "Install ffmpeg via winget (winget install Gyan.FFmpeg) or Chocolatey (choco install ffmpeg)"
	default:
		return "Install ffmpeg using your platform's package manager"
	}
}

func hostRemediation(status Status) []string {
	return remediation(status, runtime.GOOS)
}
