package driven

import "context"

// KeyValueStore is the persistent local store backing form drafts.
// Load returns (nil, false, nil) when the key is absent.
type KeyValueStore interface {
	Save(ctx context.Context, key string, value []byte) error
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
}
