package main

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/uhyunpark/hyperdex/params"
	"github.com/uhyunpark/hyperdex/pkg/app/core/events"
	"github.com/uhyunpark/hyperdex/pkg/app/core/matching"
	"github.com/uhyunpark/hyperdex/pkg/app/core/orderbook"
	"github.com/uhyunpark/hyperdex/pkg/storage"
	"github.com/uhyunpark/hyperdex/pkg/util"
)

// node owns everything that has to be closed on shutdown.
type node struct {
	engine  *matching.Engine
	closers []func() error
	log     *zap.SugaredLogger
}

func newLogger(cfg params.Config) (*zap.Logger, error) {
	level := util.ParseLevel(cfg.Log.Level)
	if cfg.Log.File == "" {
		return util.NewLogger(level)
	}
	return util.NewLoggerWithFile(cfg.Log.File, level)
}

// openNode builds the engine on the configured store and sinks, then
// restores state from the store. withSinks is false for read-only commands.
func openNode(cfg params.Config, logger *zap.Logger, withSinks bool) (*node, error) {
	n := &node{log: logger.Sugar()}

	compaction, err := orderbook.ParseCompaction(cfg.Engine.Compaction)
	if err != nil {
		return nil, err
	}

	var store matching.Store
	if path := cfg.ResolvedDBPath(); path == params.MemoryDB {
		store = storage.NewInMemoryStore()
		n.log.Infow("store_opened", "kind", "memory")
	} else {
		ps, err := storage.NewPebbleStore(path)
		if err != nil {
			return nil, errors.Wrapf(err, "open store %s", path)
		}
		n.closers = append(n.closers, ps.Close)
		store = ps
		n.log.Infow("store_opened", "kind", "pebble", "path", path)
	}

	var sinks events.Multi
	if withSinks {
		sinks = append(sinks, events.NewLogSink(logger))
		if cfg.Storage.EventJournal != "" {
			j, err := storage.NewFileJournal(cfg.Storage.EventJournal, logger)
			if err != nil {
				n.Close()
				return nil, err
			}
			n.closers = append(n.closers, j.Close)
			sinks = append(sinks, j)
			n.log.Infow("event_journal_enabled", "path", cfg.Storage.EventJournal)
		}
		if len(cfg.Kafka.Brokers) > 0 {
			ks := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
			n.closers = append(n.closers, ks.Close)
			sinks = append(sinks, ks)
			n.log.Infow("kafka_export_enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		}
	}

	n.engine = matching.NewEngine(matching.Config{
		Compaction: compaction,
		Store:      store,
		Sink:       sinks,
		Logger:     logger,
	})
	if err := n.engine.Restore(); err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

// Close runs closers in reverse order of opening.
func (n *node) Close() {
	for i := len(n.closers) - 1; i >= 0; i-- {
		if err := n.closers[i](); err != nil {
			n.log.Errorw("close_failed", "err", err)
		}
	}
	n.closers = nil
}
