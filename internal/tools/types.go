package tools

type Source string

const (
	SourceUnknown Source = ""
	SourceConfig  Source = "config"
	SourceSystem  Source = "system"
)

// Status captures the resolved state for a required tool.
type Status struct {
	Tool      string   `json:"tool"`
	Version   string   `json:"version,omitempty"`
	Minimum   string   `json:"minimum,omitempty"`
	Source    Source   `json:"source"`
	Path      string   `json:"path,omitempty"`
	Satisfied bool     `json:"satisfied"`
	Error     string   `json:"error,omitempty"`
	Missing   []string `json:"missing,omitempty"`
	Notes     []string `json:"notes,omitempty"`
}

// ToolDefinition contains metadata required to locate and gate a tool.
type ToolDefinition struct {
	Name           string
	MinimumVersion string
	Executable     string
	VersionSwitch  string
}

// Paths is the resolved pair of executables the engine drives.
type Paths struct {
	FFmpeg  string
	FFprobe string
}
