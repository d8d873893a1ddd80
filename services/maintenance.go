package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"pages-chatbot-platform/internal/logger"
)

// Flusher persists buffered vector segments. Satisfied by the Milvus store.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Maintenance runs periodic background jobs for the API process. Currently
// that is just the vector store flush, batched on a timer instead of per
// write.
type Maintenance struct {
	scheduler *gocron.Scheduler
}

func NewMaintenance() *Maintenance {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	return &Maintenance{scheduler: s}
}

// ScheduleFlush flushes the vector store at the given interval.
func (m *Maintenance) ScheduleFlush(flusher Flusher, every time.Duration) error {
	_, err := m.scheduler.Every(every).Tag("vector-flush").Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := flusher.Flush(ctx); err != nil {
			logger.Warn("scheduled flush failed", "error", err)
		}
	})
	return err
}

func (m *Maintenance) Start() {
	m.scheduler.StartAsync()
}

func (m *Maintenance) Stop() {
	m.scheduler.Stop()
}
