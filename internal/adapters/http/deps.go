package http

import (
	"github.com/mbenedetti/percorsi/internal/adapters/graphfile"
	natsadapter "github.com/mbenedetti/percorsi/internal/adapters/nats"
	"github.com/mbenedetti/percorsi/internal/adapters/postgres"
	"github.com/mbenedetti/percorsi/internal/adapters/valkey"
	"github.com/mbenedetti/percorsi/internal/core/ports"
	"github.com/mbenedetti/percorsi/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Jobs   *usecases.JobService
	Runner *usecases.JobRunner
	Graphs *graphfile.Store
	Index  ports.NearestNodeIndex
	Events *natsadapter.Subscriber
	DB     *postgres.DB
	Cache  *valkey.Cache
}
