package config

import "context"

// SecretProvider resolves secret values by key. SSMProvider serves deployed
// environments; EnvVarProvider serves local runs and tests.
type SecretProvider interface {
	// GetParametersBatch returns key -> plaintext for every key it could
	// resolve. Keys it cannot find are omitted rather than reported as errors
	// unless the backing store says otherwise.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
