// Package storage provides the small key/value stores that back wallet
// persistence.
package storage

import (
	"context"
	"fmt"
)

// Store is a string key/value store. Get reports ok=false for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverFile     Driver = "file"
	DriverPostgres Driver = "postgres"
)

type Config struct {
	Driver      Driver `mapstructure:"driver"`
	Path        string `mapstructure:"path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// Open builds the store selected by cfg.Driver. The returned close function
// releases any held resources.
func Open(ctx context.Context, cfg Config) (Store, func(), error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemory(), func() {}, nil
	case DriverFile:
		f, err := NewFile(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return f, func() {}, nil
	case DriverPostgres:
		pg, err := NewPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

type namespacer interface {
	Namespace(ns string) Store
}

// Namespaced scopes every key of s under ns. Stores with native namespace
// support are asked for a scoped view; others get a key prefix.
func Namespaced(s Store, ns string) Store {
	if n, ok := s.(namespacer); ok {
		return n.Namespace(ns)
	}
	return &prefixed{store: s, prefix: ns + ":"}
}

type prefixed struct {
	store  Store
	prefix string
}

func (p *prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	return p.store.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key, value string) error {
	return p.store.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.store.Delete(ctx, p.prefix+key)
}
