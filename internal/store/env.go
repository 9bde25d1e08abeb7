package store

import "context"

// EnvStore serves a token blob supplied through the environment
// (SPOTIFY_TOKEN_CACHE on the original deployment). Operators rotate the
// credential by editing the variable and restarting; the process never
// writes back, so Put is a no-op.
type EnvStore struct {
	blob string
}

// NewEnvStore wraps an environment-supplied blob. An empty blob is a valid
// store that always reports absence.
func NewEnvStore(blob string) *EnvStore {
	return &EnvStore{blob: blob}
}

func (s *EnvStore) Name() string { return "env" }

func (s *EnvStore) Get(ctx context.Context) ([]byte, error) {
	if s.blob == "" {
		return nil, ErrAbsent
	}
	return []byte(s.blob), nil
}

// Put discards the blob; the environment is read-only.
func (s *EnvStore) Put(ctx context.Context, blob []byte) error {
	return nil
}
