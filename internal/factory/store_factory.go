package factory

import (
	"TrafficParser/internal/model"
	"TrafficParser/internal/store"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// StoreFactory opens a store for a database URL whose scheme it registered for.
type StoreFactory func(ctx context.Context, dsn string, log zerolog.Logger) (store.Store, error)

// registry holds the mapping of URL schemes to store factories.
var registry = make(map[string]StoreFactory)

// RegisterStore registers a store backend for one or more URL schemes.
func RegisterStore(factory StoreFactory, schemes ...string) {
	for _, scheme := range schemes {
		scheme = strings.ToLower(scheme)
		if _, exists := registry[scheme]; exists {
			panic(fmt.Sprintf("store scheme '%s' already registered", scheme))
		}
		registry[scheme] = factory
	}
}

// Schemes lists the registered URL schemes.
func Schemes() []string {
	out := make([]string, 0, len(registry))
	for s := range registry {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Scheme returns the backend scheme of a database URL. "file:" URLs and bare
// paths are SQLite databases.
func Scheme(dsn string) string {
	if i := strings.Index(dsn, "://"); i > 0 {
		return strings.ToLower(dsn[:i])
	}
	if strings.HasPrefix(strings.ToLower(dsn), "file:") {
		return "file"
	}
	return "sqlite"
}

// OpenStore opens the store selected by the scheme of dsn.
func OpenStore(ctx context.Context, dsn string, log zerolog.Logger) (store.Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, model.Configurationf("database URL is empty")
	}

	scheme := Scheme(dsn)
	factory, ok := registry[scheme]
	if !ok {
		return nil, model.Configurationf("unsupported database scheme '%s' (supported: %s)", scheme, strings.Join(Schemes(), ", "))
	}

	s, err := factory(ctx, dsn, log)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("scheme", scheme).Msg("Store opened")
	return s, nil
}
