package domain

import "encoding/json"

const (
	// EnvDeploymentAddresses is read by server-side consumers
	EnvDeploymentAddresses = "DEPLOYMENT_ADDRESSES"
	// EnvNextPublicDeploymentAddresses is read by browser bundles
	EnvNextPublicDeploymentAddresses = "NEXT_PUBLIC_DEPLOYMENT_ADDRESSES"
)

// DeploymentAddressKeys lists every environment variable that carries the address map
var DeploymentAddressKeys = []string{EnvDeploymentAddresses, EnvNextPublicDeploymentAddresses}

// DeploymentAddresses maps contract names to deployed addresses
type DeploymentAddresses map[string]string

// Encode returns the JSON form published into the environment
func (d DeploymentAddresses) Encode() (string, error) {
	if d == nil {
		d = DeploymentAddresses{}
	}
	data, err := json.Marshal(map[string]string(d))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
