package main

import (
	"log/slog"

	"github.com/sanonone/kektorgraph/internal/mcp"
	"github.com/sanonone/kektorgraph/pkg/client"
	"github.com/sanonone/kektorgraph/pkg/shard"
	"github.com/sanonone/kektorgraph/pkg/traversal"
)

// newService builds the traversal service over the configured cluster. With
// no cluster engines configured it falls back to the local shard engine, in
// process; the returned close function releases it.
func newService() (*mcp.Service, func() error, error) {
	cat, err := cfg.NewCatalog()
	if err != nil {
		return nil, nil, err
	}
	timeout, err := cfg.Cluster.TimeoutDuration()
	if err != nil {
		return nil, nil, err
	}

	fanOut := traversal.NewFanOut(slog.Default())
	var engines []string
	closeFn := func() error { return nil }

	if len(cfg.Cluster.Engines) == 0 {
		eng, err := openEngine()
		if err != nil {
			return nil, nil, err
		}
		fanOut.Register(shard.NewLocal(cfg.Server.EngineID, eng))
		engines = append(engines, cfg.Server.EngineID)
		closeFn = eng.Close
	}
	for _, e := range cfg.Cluster.Engines {
		fanOut.Register(client.New(e.ID, e.URL, e.Token, client.WithTimeout(timeout)))
		engines = append(engines, e.ID)
	}

	slog.Debug("traversal service ready", "database", cfg.Server.Database, "engines", engines)

	svc := mcp.NewService(mcp.Options{
		Database: cfg.Server.Database,
		Engines:  engines,
		Fetcher:  fanOut,
		Resolver: cat,
		Filter: traversal.EdgeFilter{
			Direction: cfg.Traversal.Direction,
			Relations: cfg.Traversal.Relations,
		},
		ArenaChunkSize: cfg.Traversal.ArenaChunkSize,
		Logger:         slog.Default(),
	})
	return svc, closeFn, nil
}
