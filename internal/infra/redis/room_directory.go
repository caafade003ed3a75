package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RoomDirectory maps join codes to session ids in Redis so any instance can
// resolve a code without hitting the session store. The session store stays
// authoritative; entries here expire with the room TTL.
type RoomDirectory struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoomDirectory(client *redis.Client, ttl time.Duration) *RoomDirectory {
	return &RoomDirectory{client: client, ttl: ttl}
}

func (d *RoomDirectory) Register(ctx context.Context, code, sessionID string) error {
	return d.client.Set(ctx, d.key(code), sessionID, d.ttl).Err()
}

func (d *RoomDirectory) Resolve(ctx context.Context, code string) (string, bool, error) {
	sessionID, err := d.client.Get(ctx, d.key(code)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return sessionID, true, nil
}

func (d *RoomDirectory) Unregister(ctx context.Context, code string) error {
	return d.client.Del(ctx, d.key(code)).Err()
}

func (d *RoomDirectory) key(code string) string {
	return "room:code:" + code
}
