package cli

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"splicer/internal/config"
	"splicer/internal/logx"
	"splicer/internal/paths"
	"splicer/internal/runner"
	"splicer/internal/tools"
)

// Seams for tests.
var (
	newRunner    = func() runner.Runner { return runner.Exec{} }
	resolveTools = tools.Resolve
)

// environment is the per-invocation project context shared by commands.
type environment struct {
	paths  paths.ProjectPaths
	config config.Config
	logger *zap.Logger
	runner runner.Runner
	tools  tools.Paths

	closer io.Closer
}

// loadEnvironment resolves the project, loads its config and opens the log
// file. needTools also locates ffmpeg and ffprobe.
func loadEnvironment(command string, needTools bool) (*environment, error) {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return nil, err
	}
	exists, err := paths.DirExists(pp.Root)
	if err != nil {
		return nil, fmt.Errorf("stat project dir: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("project directory does not exist: %s", pp.Root)
	}

	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return nil, err
	}

	logger, closer, err := logx.New(pp, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("command", command))

	env := &environment{
		paths:  pp,
		config: cfg,
		logger: logger,
		runner: newRunner(),
		closer: closer,
	}
	if needTools {
		resolved, err := resolveTools(cfg.Tools)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.tools = resolved
		logger.Debug("resolved tools", zap.String("ffmpeg", resolved.FFmpeg), zap.String("ffprobe", resolved.FFprobe))
	}
	return env, nil
}

// Close flushes and closes the log file.
func (e *environment) Close() {
	if e.closer != nil {
		_ = e.closer.Close()
	}
}
