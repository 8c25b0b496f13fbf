package deployments

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/afero"
	"github.com/trebuchet-org/ens-test-env/internal/domain"
	"github.com/trebuchet-org/ens-test-env/internal/usecase"
)

// artifact is the part of a deployment artifact the loader reads
type artifact struct {
	Address string `json:"address"`
}

// Loader builds the deployment address map from artifact files
type Loader struct {
	source ArtifactSource
	log    *slog.Logger
}

// NewLoader creates a loader over source
func NewLoader(source ArtifactSource, log *slog.Logger) *Loader {
	return &Loader{
		source: source,
		log:    log.With("component", "DeploymentLoader"),
	}
}

// NewConfiguredLoader reads artifacts from the configured container, or from
// the local filesystem when no container is set. It returns nil when no
// artifact directory is configured.
func NewConfiguredLoader(cfg *domain.Config, exec Execer, fs afero.Fs, log *slog.Logger) usecase.DeploymentLoader {
	deployments := cfg.Env.Deployments
	if deployments.Dir == "" {
		return nil
	}
	if deployments.Container != "" {
		return NewLoader(NewContainerSource(exec, deployments.Container, deployments.Dir, cfg.ComposeOptions(nil)), log)
	}
	return NewLoader(NewFSSource(fs, deployments.Dir), log)
}

// Load reads every *.json artifact. The file base name is the contract name.
// Files without an address are skipped.
func (l *Loader) Load(ctx context.Context) (domain.DeploymentAddresses, error) {
	names, err := l.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	addresses := make(domain.DeploymentAddresses)
	for _, name := range names {
		if !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := l.source.Read(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact %s: %w", name, err)
		}

		var a artifact
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("failed to parse artifact %s: %w", name, err)
		}
		if a.Address == "" {
			l.log.Debug("artifact has no address", "file", name)
			continue
		}

		contract := strings.TrimSuffix(name, ".json")
		addresses[contract] = normalizeAddress(a.Address)
	}

	l.log.Debug("loaded deployment addresses", "count", len(addresses))
	return addresses, nil
}

// normalizeAddress checksums full-length hex addresses and leaves anything else untouched
func normalizeAddress(address string) string {
	if common.IsHexAddress(address) {
		return common.HexToAddress(address).Hex()
	}
	return address
}

// Ensure the loader implements the interface
var _ usecase.DeploymentLoader = (*Loader)(nil)
