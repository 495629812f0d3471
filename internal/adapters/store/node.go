package store

import (
	"context"
	"os"
	"strconv"

	"github.com/grindlemire/graft"
	"go.trai.ch/memo/internal/adapters/logger"
	"go.trai.ch/memo/internal/core/ports"
)

// NodeID is the unique identifier for the store Graft node.
const NodeID graft.ID = "adapter.store"

// Environment variables selecting the store backend. When no address is set
// the in-memory store is used.
const (
	EnvValkeyAddress  = "MEMO_VALKEY_ADDR"
	EnvValkeyPassword = "MEMO_VALKEY_PASSWORD"
	EnvValkeyDB       = "MEMO_VALKEY_DB"
)

func init() {
	graft.Register(graft.Node[ports.Store]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.Store, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			address := os.Getenv(EnvValkeyAddress)
			if address == "" {
				log.Debug("using in-memory cache store")
				return NewMemory(), nil
			}

			db := 0
			if raw := os.Getenv(EnvValkeyDB); raw != "" {
				parsed, parseErr := strconv.Atoi(raw)
				if parseErr != nil {
					log.Warn("ignoring invalid valkey db selector", "value", raw)
				} else {
					db = parsed
				}
			}

			log.Info("using valkey cache store", "address", address, "db", db)
			return NewValkey(ValkeyConfig{
				Address:  address,
				Password: os.Getenv(EnvValkeyPassword),
				DB:       db,
			})
		},
	})
}
