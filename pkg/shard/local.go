package shard

import (
	"context"
	"fmt"
)

// Local exposes an in-process Engine under an engine id, so a coordinator
// embedded in the same binary can fan out to it without going over HTTP.
type Local struct {
	id     string
	engine *Engine
}

func NewLocal(id string, engine *Engine) *Local {
	return &Local{id: id, engine: engine}
}

func (l *Local) ID() string { return l.id }

// ReadEdges forwards to the engine after checking the database name.
func (l *Local) ReadEdges(ctx context.Context, database string, req *EdgeRequest) (*EdgeResponse, error) {
	if database != l.engine.Database() {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, database)
	}
	return l.engine.ReadEdges(ctx, req)
}
