package credentials

import (
	"context"
	"os"
	"strings"
)

// Store is the slice of the persistence layer the resolver reads from.
type Store interface {
	GetCredential(ctx context.Context, provider string) (string, error)
}

// Resolver finds the API key to use for a provider.
type Resolver struct {
	store Store
}

// NewResolver returns a Resolver backed by store. A nil store skips the
// stored-key source.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the first key found: explicit config, then the store,
// then the provider's environment variable. A miss returns "" without an
// error; whether a key is required is the caller's decision, since ollama
// runs keyless.
func (r *Resolver) Resolve(ctx context.Context, provider, explicit string) string {
	if explicit != "" {
		return explicit
	}

	provider = strings.ToLower(strings.TrimSpace(provider))

	if r.store != nil {
		if key, err := r.store.GetCredential(ctx, provider); err == nil && key != "" {
			return key
		}
	}

	if env := EnvVarForProvider(provider); env != "" {
		if key := strings.TrimSpace(os.Getenv(env)); key != "" {
			return key
		}
	}

	return ""
}
