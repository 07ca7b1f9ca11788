package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"mvspipe/internal/config"
	"mvspipe/internal/workspace"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create, print, or check the mvspipe configuration",
	}
	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigShowCommand(ctx),
		newConfigValidateCommand(ctx),
	)
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the sample configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := sampleTarget(targetPath, overwrite)
			if err != nil {
				return err
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set paths.workspace and paths.image_path (or export MVSPIPE_WORKSPACE) before running mvspipe.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

// sampleTarget resolves where config init writes. An existing file is an
// error unless overwrite is set.
func sampleTarget(flag string, overwrite bool) (string, error) {
	target, err := config.ExpandPath(strings.TrimSpace(flag))
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	if target == "" {
		if target, err = config.DefaultConfigPath(); err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
	}
	if overwrite {
		return target, nil
	}
	switch _, err := os.Stat(target); {
	case err == nil:
		return "", fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("check config path: %w", err)
	}
	return target, nil
}

func configSections(cfg *config.Config) map[string]any {
	return map[string]any{
		"paths":       cfg.Paths,
		"colmap":      cfg.Colmap,
		"accelerator": cfg.Accelerator,
		"patch_match": cfg.PatchMatch,
		"logging":     cfg.Logging,
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	var section string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var doc any = cfg
			if name := strings.TrimSpace(section); name != "" {
				sections := configSections(cfg)
				body, ok := sections[name]
				if !ok {
					names := make([]string, 0, len(sections))
					for key := range sections {
						names = append(names, key)
					}
					slices.Sort(names)
					return fmt.Errorf("unknown section %q (have %s)", name, strings.Join(names, ", "))
				}
				doc = map[string]any{name: body}
			}
			data, err := toml.Marshal(doc)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&section, "section", "", "Only print this section (paths, colmap, accelerator, patch_match, logging)")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and report the workspace it selects",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", resolved)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			if ws := cfg.DefaultWorkspace(); ws != "" {
				fmt.Fprintf(out, "Workspace: %s (%s)\n", ws, workspace.Evaluate(ws).State())
			} else {
				fmt.Fprintln(out, "Workspace: not set")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
