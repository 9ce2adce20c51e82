package tools

import (
	"runtime"
	"sort"
)

var toolDefinitions = map[string]ToolDefinition{
	"ffmpeg": {
		Name:           "ffmpeg",
		MinimumVersion: "4.4",
		Executable:     executableName("ffmpeg"),
		VersionSwitch:  "-version",
	},
	"ffprobe": {
		Name:           "ffprobe",
		MinimumVersion: "4.4",
		Executable:     executableName("ffprobe"),
		VersionSwitch:  "-version",
	},
}

// RequiredEncoders are the ffmpeg encoders the export pipeline emits.
var RequiredEncoders = []string{"libx264", "aac"}

// RequiredFilters are the ffmpeg filters the export filter graph relies on.
var RequiredFilters = []string{"xfade", "tpad", "overlay", "loudnorm", "colorchannelmixer", "eq", "hue"}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

// KnownTools returns the list of required tool names.
func KnownTools() []string {
	names := make([]string, 0, len(toolDefinitions))
	for name := range toolDefinitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition returns the tool definition for the provided name.
func Definition(name string) (ToolDefinition, bool) {
	def, ok := toolDefinitions[name]
	return def, ok
}
