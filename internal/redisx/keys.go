package redisx

import "time"

const (
	// Revoked bearer token: revoked:{jti} -> "1", expires with the token.
	KeyRevokedToken = "revoked:%s"

	// Per-user checkout lock: lock:checkout:{user_id} -> holder token
	KeyCheckoutLock = "lock:checkout:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLDedup = 48 * time.Hour
)
