// Package cache adapts Redis to fiber.Storage so rate limiter counters are
// shared between API instances.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const opTimeout = 2 * time.Second

// Storage implements fiber.Storage on a Redis client. Keys are prefixed so
// the limiter can share a database with other users.
type Storage struct {
	client *redis.Client
	prefix string
}

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// New connects and pings Redis.
func New(ctx context.Context, o Options) (*Storage, error) {
	client := redis.NewClient(&redis.Options{Addr: o.Addr, Password: o.Password, DB: o.DB})
	pctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", o.Addr, err)
	}
	return NewWithClient(client, o.Prefix), nil
}

func NewWithClient(client *redis.Client, prefix string) *Storage {
	if prefix == "" {
		prefix = "storefront:"
	}
	return &Storage{client: client, prefix: prefix}
}

func (s *Storage) key(k string) string { return s.prefix + k }

func ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

// Get returns nil, nil for a missing key as fiber.Storage requires.
func (s *Storage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	c, cancel := ctx()
	defer cancel()
	val, err := s.client.Get(c, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

// Set stores val; exp 0 means no expiry.
func (s *Storage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	c, cancel := ctx()
	defer cancel()
	return s.client.Set(c, s.key(key), val, exp).Err()
}

func (s *Storage) Delete(key string) error {
	if key == "" {
		return nil
	}
	c, cancel := ctx()
	defer cancel()
	return s.client.Del(c, s.key(key)).Err()
}

// Reset removes every key under the prefix.
func (s *Storage) Reset() error {
	c, cancel := ctx()
	defer cancel()
	iter := s.client.Scan(c, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(c) {
		if err := s.client.Del(c, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (s *Storage) Close() error { return s.client.Close() }
