package rdx

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Conn is the shared client. It stays nil when REDIS_URL is unset; every
// helper degrades to a cache miss so the engine runs without redis.
var Conn *redis.Client

// Initialize Redis connection from the environment.
func Init() {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		log.Println("REDIS_URL not set; place-lookup cache disabled")
		return
	}

	Conn = redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: os.Getenv("REDIS_PASSWORD"), // Empty if no password
		DB:       0,                           // Default DB
	})
}

// CacheGetJSON loads a cached value into dest. Returns false on miss, redis
// being down, or a stale/undecodable payload.
func CacheGetJSON(ctx context.Context, key string, dest any) bool {
	if Conn == nil {
		return false
	}
	raw, err := Conn.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("rdx: get %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		log.Printf("rdx: decode %s: %v", key, err)
		return false
	}
	return true
}

// CacheSetJSON stores a value with a TTL, best effort.
func CacheSetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if Conn == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("rdx: encode %s: %v", key, err)
		return
	}
	if err := Conn.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("rdx: set %s: %v", key, err)
	}
}
