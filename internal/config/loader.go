package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/trebuchet-org/ens-test-env/internal/domain"
)

// Load builds and validates the run configuration. Relative paths resolve
// against dir.
func Load(v *viper.Viper, dir string) (*domain.Config, error) {
	var env domain.EnvConfig
	if err := v.Unmarshal(&env); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	env.Paths.ComposeFile = resolve(dir, env.Paths.ComposeFile)
	env.Paths.Data = resolve(dir, env.Paths.Data)
	env.Paths.Archive = resolve(dir, env.Paths.Archive)
	env.Paths.EnvFile = resolve(dir, env.Paths.EnvFile)
	if env.Deployments.Container == "" {
		env.Deployments.Dir = resolve(dir, env.Deployments.Dir)
	}
	envs, err := scriptEnvs(v.ConfigFileUsed())
	if err != nil {
		return nil, err
	}
	for i := range env.Scripts {
		if env.Scripts[i].Cwd != "" {
			env.Scripts[i].Cwd = resolve(dir, env.Scripts[i].Cwd)
		}
		if i < len(envs) && len(envs[i]) > 0 {
			env.Scripts[i].Env = envs[i]
		}
	}

	cfg := &domain.Config{
		Env: env,
		Options: domain.Options{
			Verbosity:       v.GetInt("verbosity"),
			ExtraTime:       v.GetInt64("extra_time"),
			KillGracefully:  v.GetBool("kill_gracefully"),
			Build:           !v.GetBool("no_build"),
			Scripts:         !v.GetBool("no_scripts"),
			Indexer:         !v.GetBool("no_indexer"),
			ExitAfterDeploy: v.GetBool("exit_after_deploy"),
			SaveArchive:     v.GetBool("save"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
