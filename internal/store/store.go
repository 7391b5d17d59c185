// Package store provides the key-value capability that holds client-side
// state (comparison set, selected address) between invocations.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// KeyValueStore persists string values by key. Read-modify-write across
// processes is not atomic; the last writer wins.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Options configures a store driver.
type Options struct {
	Path          string // file driver
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Prefix        string // namespace prepended to every key by remote drivers
}

// Factory builds a store from options.
type Factory func(opts Options) (KeyValueStore, error)

var (
	drivers = make(map[string]Factory)
	mu      sync.RWMutex
)

func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	drivers[name] = factory
}

func Open(name string, opts Options) (KeyValueStore, error) {
	mu.RLock()
	factory, ok := drivers[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store driver %q not registered", name)
	}
	return factory(opts)
}

func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
