// Package emitter publishes settlement records for external indexers.
// Records are persisted asynchronously; a slow or failing sink never
// blocks or unwinds the settlement that produced the record.
package emitter

import (
	"time"

	"github.com/google/uuid"
	"github.com/viney-shih/goroutines"
	bCtx "github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/base/log"
	"github.com/x-xyz/settlement/base/metrics"
	"github.com/x-xyz/settlement/domain"
)

type Cfg struct {
	RecordRepo domain.RecordRepo
	Clock      domain.Clock
	Workers    int
	QueueLen   int
}

type impl struct {
	recordRepo domain.RecordRepo
	clock      domain.Clock
	workerPool *goroutines.Pool
	met        metrics.Service
}

func New(cfg *Cfg) domain.Emitter {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 8
	}
	queueLen := cfg.QueueLen
	if queueLen <= 0 {
		queueLen = 1024
	}
	return &impl{
		recordRepo: cfg.RecordRepo,
		clock:      cfg.Clock,
		workerPool: goroutines.NewPool(workers, goroutines.WithTaskQueueLength(queueLen)),
		met:        metrics.New("emitter"),
	}
}

func (im *impl) Emit(c bCtx.Ctx, record *domain.Record) {
	if record.Id == "" {
		record.Id = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = im.clock.Now()
	}

	err := im.workerPool.ScheduleWithTimeout(3*time.Second, func() {
		if err := im.recordRepo.Insert(bCtx.Background(), record); err != nil {
			im.met.BumpSum("emit.err", 1, "kind", string(record.Kind))
			c.WithFields(log.Fields{
				"err":    err,
				"record": record,
			}).Error("recordRepo.Insert failed")
			return
		}
		im.met.BumpSum("emit", 1, "kind", string(record.Kind))
	})
	if err != nil {
		im.met.BumpSum("emit.drop", 1, "kind", string(record.Kind))
		c.WithFields(log.Fields{
			"err":  err,
			"kind": record.Kind,
		}).Warn("emitter queue full, record dropped")
	}
}

func (im *impl) Close() {
	im.workerPool.Release()
}
