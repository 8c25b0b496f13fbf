package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type rawScripts struct {
	Scripts []struct {
		Env map[string]any `yaml:"env" toml:"env"`
	} `yaml:"scripts" toml:"scripts"`
}

// scriptEnvs reads the script env maps straight from the config file. The
// config layer folds map keys to lower case, which loses variable names.
func scriptEnvs(path string) ([]map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var raw rawScripts
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	default:
		// JSON documents are valid YAML
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse scripts in %s: %w", path, err)
	}

	envs := make([]map[string]string, len(raw.Scripts))
	for i, s := range raw.Scripts {
		if len(s.Env) == 0 {
			continue
		}
		envs[i] = make(map[string]string, len(s.Env))
		for k, val := range s.Env {
			envs[i][k] = fmt.Sprint(val)
		}
	}
	return envs, nil
}
