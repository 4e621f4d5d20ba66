// Package metadata is the client's durable key-value slot. The mock issue
// snapshot, the credential token and the offline login cache all live
// here, each under its own key.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeyMockIssues   = "mockIssues"
	KeyAuthToken    = "auth-token"
	KeyUser         = "user"
	KeyOfflineEmail = "offline-email"
	KeyOfflineSalt  = "offline-salt"
	KeyOfflineHash  = "offline-verifier"
)

// Repository stores opaque values by key. Get returns (nil, nil) for a
// missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
