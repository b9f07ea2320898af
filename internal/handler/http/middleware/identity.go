package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// APIKeyHeader carries a client API key.
const APIKeyHeader = "X-API-Key"

// IdentityKind names the source a client identity was taken from.
type IdentityKind string

const (
	IdentityAPIKey IdentityKind = "apikey"
	IdentityUser   IdentityKind = "user"
	IdentityIP     IdentityKind = "ip"
)

// Identity is the logical client a quota is charged to.
type Identity struct {
	Kind IdentityKind
	ID   string
}

// Key scopes the identity to a route: <route>:<kind>:<id>.
func (i Identity) Key(route string) string {
	return route + ":" + string(i.Kind) + ":" + i.ID
}

// UserLookup returns the authenticated user stored in ctx, if any.
type UserLookup func(ctx context.Context) (string, bool)

// KeyResolver derives the rate limit identity of a request.
//
// Priority is API key, then authenticated user, then client IP. API keys and
// user IDs are hashed so that raw credentials and emails never reach the
// shared store or the logs.
type KeyResolver struct {
	ips  IPExtractor
	user UserLookup
}

// NewKeyResolver creates a KeyResolver. A nil ips uses RemoteAddrExtractor and
// a nil user disables user identities.
func NewKeyResolver(ips IPExtractor, user UserLookup) *KeyResolver {
	if ips == nil {
		ips = &RemoteAddrExtractor{}
	}
	return &KeyResolver{ips: ips, user: user}
}

// Resolve returns the identity of r.
func (k *KeyResolver) Resolve(r *http.Request) (Identity, error) {
	if apiKey := strings.TrimSpace(r.Header.Get(APIKeyHeader)); apiKey != "" {
		return Identity{Kind: IdentityAPIKey, ID: hashIdentity(apiKey)}, nil
	}

	if k.user != nil {
		if userID, ok := k.user(r.Context()); ok && userID != "" {
			return Identity{Kind: IdentityUser, ID: hashIdentity(userID)}, nil
		}
	}

	ip, err := k.ips.ExtractIP(r)
	if err != nil {
		return Identity{}, fmt.Errorf("resolve client identity: %w", err)
	}
	return Identity{Kind: IdentityIP, ID: ip}, nil
}

// hashIdentity returns the hex-encoded SHA-256 of value.
func hashIdentity(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:])
}
