package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"splicer/internal/config"
	"splicer/internal/logx"
	"splicer/internal/paths"
)

const planTemplateYAML = `# Edit plan. Times accept seconds (12.5), clock strings ("1:02.5")
# or exact fractions (1001/30000).
sources:
  # intro: media/intro.mp4

clips:
  # - source: intro
  #   start: "0:02"
  #   end: "0:08.5"
  #   snap: nearest      # none | nearest | forward

# transition: 0.5        # cross-fade seconds; 0 disables

overlays:
  # - text: Welcome
  #   start: 1
  #   duration: 3

# captions:
#   file: transcript.json

normalize: true
# duck_transitions: 0.5
# filters:
#   brightness: 0.05     # -1..1
#   contrast: 1.1
#   saturation: 1.2      # 0..3
#   hue: 10              # degrees
#   tone: sepia          # sepia | mono
# preset: balanced
output: final.mp4
`

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a splicer project",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}
}

func resolveInitDir(projectFlag string, args []string) (string, error) {
	if projectFlag != "" {
		return projectFlag, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	if len(args) > 0 {
		if args[0] == "." {
			return cwd, nil
		}
		return filepath.Join(cwd, args[0]), nil
	}

	return nextAvailableDir(cwd)
}

func nextAvailableDir(base string) (string, error) {
	for i := 1; ; i++ {
		candidate := filepath.Join(base, fmt.Sprintf("splicer-%d", i))
		exists, err := paths.DirExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := resolveInitDir(projectDir, args)
	if err != nil {
		return err
	}

	pp, err := paths.Resolve(dir)
	if err != nil {
		return err
	}
	if err := pp.EnsureRoot(); err != nil {
		return err
	}
	if err := pp.EnsureMetaDirs(); err != nil {
		return err
	}

	logger, closer, err := logx.New(pp, "info")
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Info("splicer init", zap.String("project", pp.Root))

	created := make([]string, 0, 2)
	if err := ensurePlan(pp, &created, logger); err != nil {
		return err
	}
	if err := ensureConfig(pp, &created, logger); err != nil {
		return err
	}

	if len(created) == 0 {
		cmd.Printf("Project already initialized at %s\n", pp.Root)
		return nil
	}

	cmd.Printf("Initialized project at %s\n", pp.Root)
	for _, entry := range created {
		cmd.Printf("  created %s\n", entry)
	}
	return nil
}

func ensurePlan(pp paths.ProjectPaths, created *[]string, logger *zap.Logger) error {
	exists, err := paths.FileExists(pp.PlanFile)
	if err != nil {
		return fmt.Errorf("check plan: %w", err)
	}
	if exists {
		logger.Info("plan exists", zap.String("path", pp.PlanFile))
		return nil
	}

	if err := os.WriteFile(pp.PlanFile, []byte(planTemplateYAML), 0o644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	logger.Info("created plan", zap.String("path", pp.PlanFile))
	*created = append(*created, filepath.Base(pp.PlanFile))
	return nil
}

func ensureConfig(pp paths.ProjectPaths, created *[]string, logger *zap.Logger) error {
	exists, err := paths.FileExists(pp.ConfigFile)
	if err != nil {
		return fmt.Errorf("check config: %w", err)
	}
	if exists {
		logger.Info("config exists", zap.String("path", pp.ConfigFile))
		return nil
	}

	cfg := config.Default()
	cfg.ApplyDefaults()
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(pp.ConfigFile, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	logger.Info("created config", zap.String("path", pp.ConfigFile))
	*created = append(*created, filepath.Base(pp.ConfigFile))
	return nil
}
