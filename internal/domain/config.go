package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Script describes an auxiliary command launched once the environment is ready
type Script struct {
	Command      string            `mapstructure:"command" json:"command"`
	Name         string            `mapstructure:"name" json:"name"`
	PrefixColor  string            `mapstructure:"prefixColor" json:"prefixColor,omitempty"`
	Cwd          string            `mapstructure:"cwd" json:"cwd,omitempty"`
	Env          map[string]string `mapstructure:"env" json:"env,omitempty"`
	FinishOnExit bool              `mapstructure:"finishOnExit" json:"finishOnExit"`
}

// Paths holds filesystem locations used by the environment
type Paths struct {
	ComposeFile string `mapstructure:"composeFile" json:"composeFile"`
	Data        string `mapstructure:"data" json:"data,omitempty"`
	Archive     string `mapstructure:"archive" json:"archive,omitempty"`
	EnvFile     string `mapstructure:"envFile" json:"envFile,omitempty"`
}

// NodeConfig describes the local blockchain node service
type NodeConfig struct {
	Service        string `mapstructure:"service" json:"service"`
	RPCURL         string `mapstructure:"rpcUrl" json:"rpcUrl"`
	WaitResource   string `mapstructure:"waitResource" json:"waitResource"`
	FixedTimestamp int64  `mapstructure:"fixedTimestamp" json:"fixedTimestamp"`
}

// IndexerConfig describes the chain indexer service and its query surface
type IndexerConfig struct {
	Service      string   `mapstructure:"service" json:"service"`
	Dependencies []string `mapstructure:"dependencies" json:"dependencies,omitempty"`
	URL          string   `mapstructure:"url" json:"url"`
	StatusPath   string   `mapstructure:"statusPath" json:"statusPath"`
	ChainID      string   `mapstructure:"chainId" json:"chainId"`
}

// DeploymentsConfig locates the deployed contract artifacts.
// When Container is set, Dir is a path inside that container.
type DeploymentsConfig struct {
	Container string `mapstructure:"container" json:"container,omitempty"`
	Dir       string `mapstructure:"dir" json:"dir,omitempty"`
}

// LogsConfig holds the byte patterns used by the log multiplexer
type LogsConfig struct {
	Ignore      []string `mapstructure:"ignore" json:"ignore"`
	ExitMarkers []string `mapstructure:"exitMarkers" json:"exitMarkers"`
}

// EnvConfig is the file-backed part of the configuration
type EnvConfig struct {
	ProjectName   string            `mapstructure:"projectName" json:"projectName"`
	DeployCommand string            `mapstructure:"deployCommand" json:"deployCommand"`
	BuildCommand  string            `mapstructure:"buildCommand" json:"buildCommand,omitempty"`
	Scripts       []Script          `mapstructure:"scripts" json:"scripts,omitempty"`
	Paths         Paths             `mapstructure:"paths" json:"paths"`
	Node          NodeConfig        `mapstructure:"node" json:"node"`
	Indexer       IndexerConfig     `mapstructure:"indexer" json:"indexer"`
	Deployments   DeploymentsConfig `mapstructure:"deployments" json:"deployments"`
	Logs          LogsConfig        `mapstructure:"logs" json:"logs"`
}

// Options are the command-line switches for a single run
type Options struct {
	Verbosity       int   `mapstructure:"verbosity" json:"verbosity"`
	ExtraTime       int64 `mapstructure:"extra_time" json:"extraTime,omitempty"`
	KillGracefully  bool  `mapstructure:"kill_gracefully" json:"killGracefully"`
	Build           bool  `mapstructure:"build" json:"build"`
	Scripts         bool  `mapstructure:"scripts" json:"scripts"`
	Indexer         bool  `mapstructure:"indexer" json:"indexer"`
	ExitAfterDeploy bool  `mapstructure:"exit_after_deploy" json:"exitAfterDeploy"`
	SaveArchive     bool  `mapstructure:"save" json:"save"`
}

// Config is the immutable input of a run
type Config struct {
	Env     EnvConfig
	Options Options
}

// Validate checks that every required field is present and options are coherent
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Env.ProjectName) == "" {
		problems = append(problems, "projectName is required")
	}
	if strings.TrimSpace(c.Env.DeployCommand) == "" {
		problems = append(problems, "deployCommand is required")
	}
	if c.Env.Paths.ComposeFile == "" {
		problems = append(problems, "paths.composeFile is required")
	}
	if c.Env.Node.Service == "" || c.Env.Node.RPCURL == "" || c.Env.Node.WaitResource == "" {
		problems = append(problems, "node.service, node.rpcUrl and node.waitResource are required")
	}
	if c.Options.Indexer && (c.Env.Indexer.Service == "" || c.Env.Indexer.URL == "" || c.Env.Indexer.ChainID == "") {
		problems = append(problems, "indexer.service, indexer.url and indexer.chainId are required when the indexer is enabled")
	}
	if c.Env.Deployments.Container != "" && c.Env.Deployments.Dir == "" {
		problems = append(problems, "deployments.dir is required when deployments.container is set")
	}
	for i, s := range c.Env.Scripts {
		if strings.TrimSpace(s.Command) == "" {
			problems = append(problems, fmt.Sprintf("scripts[%d].command is required", i))
		}
	}

	if c.Options.Verbosity < 0 || c.Options.Verbosity > 2 {
		problems = append(problems, fmt.Sprintf("verbosity must be 0, 1 or 2 (got %d)", c.Options.Verbosity))
	}
	if c.Options.ExtraTime < 0 {
		problems = append(problems, "extra-time must not be negative")
	}
	if c.Options.ExtraTime > 0 && c.Options.SaveArchive {
		problems = append(problems, "extra-time cannot be combined with save")
	}
	if c.Options.SaveArchive && (c.Env.Paths.Data == "" || c.Env.Paths.Archive == "") {
		problems = append(problems, "paths.data and paths.archive are required to save an archive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// FinishOnExitIndexes returns the positions of scripts that end the environment when they exit
func (c *Config) FinishOnExitIndexes() map[int]bool {
	indexes := make(map[int]bool)
	for i, s := range c.Env.Scripts {
		if s.FinishOnExit {
			indexes[i] = true
		}
	}
	return indexes
}

// ComposeOptions scopes container runtime calls to the configured project
func (c *Config) ComposeOptions(env map[string]string) ComposeOptions {
	return ComposeOptions{
		ProjectName: c.Env.ProjectName,
		ComposeFile: c.Env.Paths.ComposeFile,
		Cwd:         filepath.Dir(c.Env.Paths.ComposeFile),
		Env:         env,
	}
}
