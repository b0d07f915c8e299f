package service

import (
	"context"
	"time"

	"github.com/openvault/ledger-node/ledger"
	"github.com/openvault/ledger-node/log"
	"github.com/openvault/ledger-node/queue"
	"github.com/openvault/ledger-node/storage"
)

// StatsMonitorInterval is the interval at which pipeline statistics are
// logged. This can be overridden before starting the service.
var StatsMonitorInterval = 60 * time.Second

// EngineService represents a service that handles background transfer
// processing and block sealing.
type EngineService struct {
	Engine *ledger.Engine
	stg    *storage.Storage
}

// NewEngine creates a new pipeline engine instance. It pops transfer
// batches off the mempool, executes the balance movements and seals
// blocks once the batch is large enough or the block time expires.
func NewEngine(stg *storage.Storage, q queue.Queue, clock ledger.Clock, cfg ledger.Config) *EngineService {
	e, err := ledger.New(stg, q, clock, cfg)
	if err != nil {
		log.Fatalf("failed to create ledger engine: %v", err)
	}
	return &EngineService{
		Engine: e,
		stg:    stg,
	}
}

// Start begins the transfer processing service.
func (es *EngineService) Start(ctx context.Context) error {
	es.Engine.Start(ctx)
	es.startStatsMonitor(ctx, StatsMonitorInterval)
	return nil
}

// Stop halts the transfer processing service.
func (es *EngineService) Stop() {
	es.Engine.Stop()
}

// startStatsMonitor starts a goroutine that periodically logs pipeline
// statistics.
func (es *EngineService) startStatsMonitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		log.Infow("pipeline stats monitor started", "interval", interval.String())
		for {
			select {
			case <-ctx.Done():
				log.Infow("pipeline stats monitor stopped")
				return
			case <-ticker.C:
				es.logPipelineStats(ctx)
			}
		}
	}()
}

func (es *EngineService) logPipelineStats(ctx context.Context) {
	mempool, err := es.Engine.MempoolDepth(ctx)
	if err != nil {
		log.Warnw("failed to read mempool depth", "error", err.Error())
		return
	}
	dead, err := es.Engine.DeadLetterDepth(ctx)
	if err != nil {
		log.Warnw("failed to read dead letter depth", "error", err.Error())
		return
	}
	fields := []any{"mempool", mempool, "deadLetter", dead}
	if head, err := es.stg.LatestBlock(); err == nil {
		fields = append(fields, "height", head.Height, "lastSealedAt", head.Timestamp.Format(time.RFC3339))
	}
	log.Infow("pipeline statistics", fields...)
}
