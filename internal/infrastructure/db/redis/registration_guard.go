package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/storefront/identity-api/internal/core/security"
)

// guardTTL bounds how long a crashed registration can hold an email.
const guardTTL = 30 * time.Second

// releaseScript deletes KEYS[1] only while it still holds lease ARGV[1].
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// GuardClient is the subset of go-redis the guard needs. *redis.Client
// satisfies it.
type GuardClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RegistrationGuard implements ports.RegistrationGuard with a SET NX lock per
// folded email. The value is a random lease checked on release.
// Key format: register:<folded email>
type RegistrationGuard struct {
	client GuardClient
	ttl    time.Duration
}

func NewRegistrationGuard(client GuardClient) *RegistrationGuard {
	return &RegistrationGuard{client: client, ttl: guardTTL}
}

// Acquire reports whether this caller now holds the registration of email and
// returns the lease to release it with.
func (g *RegistrationGuard) Acquire(ctx context.Context, email string) (string, bool, error) {
	lease := uuid.NewString()
	ok, err := g.client.SetNX(ctx, guardKey(email), lease, g.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("registration guard acquire: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return lease, true, nil
}

// Release drops the hold on email if lease still owns it. A hold that expired
// and was taken by another caller is left alone.
func (g *RegistrationGuard) Release(ctx context.Context, email, lease string) error {
	if err := g.client.Eval(ctx, releaseScript, []string{guardKey(email)}, lease).Err(); err != nil {
		return fmt.Errorf("registration guard release: %w", err)
	}
	return nil
}

func guardKey(email string) string {
	return "register:" + security.NormalizeEmail(email)
}
