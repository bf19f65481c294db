package leaderboard

import (
	"fmt"
	"strings"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendREST     = "rest"
)

// Options selects and configures a Store backend.
type Options struct {
	Backend     string
	SQLitePath  string
	PostgresDSN string
	RESTURL     string
	RESTAPIKey  string
}

// Open builds the Store named by opts.Backend.
func Open(opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case BackendMemory, "mem":
		return NewMemoryStore(), nil
	case BackendSQLite:
		return OpenSQLiteStore(opts.SQLitePath)
	case BackendPostgres, "postgresql":
		return OpenPostgresStore(opts.PostgresDSN)
	case BackendREST, "http", "supabase":
		if strings.TrimSpace(opts.RESTURL) == "" {
			return nil, fmt.Errorf("rest leaderboard backend requires a base url")
		}
		return NewRESTStore(opts.RESTURL, opts.RESTAPIKey, nil), nil
	default:
		return nil, fmt.Errorf("invalid leaderboard backend %q (supported: %s, %s, %s, %s)",
			opts.Backend, BackendMemory, BackendSQLite, BackendPostgres, BackendREST)
	}
}
