// Package kv is the durable key-value storage used for per-user app state.
// Values are JSON blobs; keys are plain strings, optionally scoped with Namespace.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("kv: key not found")
	// ErrCorrupt marks a stored value that could not be decoded.
	ErrCorrupt = errors.New("kv: corrupt value")
)

type Store interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete of an absent key is not an error.
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

type namespaced struct {
	s      Store
	prefix string
}

// Namespace scopes every key of s under "<scope>/".
func Namespace(s Store, scope string) Store {
	return &namespaced{s: s, prefix: scope + "/"}
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.s.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.s.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.s.Delete(ctx, n.prefix+key)
}

func (n *namespaced) Ping(ctx context.Context) error { return n.s.Ping(ctx) }

// GetJSON decodes the value under key into v. Missing keys surface as ErrNotFound,
// undecodable values as ErrCorrupt wrapping the json error.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: decode %q: %w", ErrCorrupt, key, err)
	}
	return nil
}

func SetJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %q: %w", key, err)
	}
	return s.Set(ctx, key, b)
}
