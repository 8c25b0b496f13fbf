package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/trebuchet-org/ens-test-env/internal/domain"
	"gopkg.in/yaml.v3"
)

type composeFile struct {
	Services map[string]yaml.Node `yaml:"services"`
}

// ComposeServices returns the service names defined in a compose file
func ComposeServices(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file: %w", err)
	}

	var file composeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse compose file %s: %w", path, err)
	}

	services := make([]string, 0, len(file.Services))
	for name := range file.Services {
		services = append(services, name)
	}
	sort.Strings(services)
	return services, nil
}

// CheckComposeServices verifies the compose file defines every service the run will start
func CheckComposeServices(cfg *domain.Config) error {
	services, err := ComposeServices(cfg.Env.Paths.ComposeFile)
	if err != nil {
		return err
	}

	defined := make(map[string]bool, len(services))
	for _, s := range services {
		defined[s] = true
	}

	required := []string{cfg.Env.Node.Service}
	if cfg.Options.Indexer {
		required = append(required, cfg.Env.Indexer.Service)
		required = append(required, cfg.Env.Indexer.Dependencies...)
	}
	if cfg.Env.Deployments.Container != "" {
		required = append(required, cfg.Env.Deployments.Container)
	}

	var missing []string
	for _, s := range required {
		if !defined[s] {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s does not define services: %s",
			domain.ErrInvalidConfig, cfg.Env.Paths.ComposeFile, strings.Join(missing, ", "))
	}
	return nil
}
