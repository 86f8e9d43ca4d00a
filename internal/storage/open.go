package storage

import (
	"context"
	"fmt"
)

// Kinds of backend accepted by Open.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindSQLite = "sqlite"
	KindRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Kind       string
	DataDir    string
	SQLitePath string
	RedisAddr  string
}

func Open(ctx context.Context, o Options) (Backend, error) {
	switch o.Kind {
	case KindMemory:
		return NewMemory(), nil
	case KindFile, "":
		return NewFile(o.DataDir)
	case KindSQLite:
		return NewSQLite(ctx, o.SQLitePath)
	case KindRedis:
		return NewRedis(ctx, o.RedisAddr)
	default:
		return nil, fmt.Errorf("unknown store %q", o.Kind)
	}
}
