package app

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/organizer/internal/service"
	"go.uber.org/zap"
)

// Scheduler управляет фоновым обходом напоминаний
type Scheduler struct {
	reminders *service.ReminderService
	interval  time.Duration
	logger    *zap.Logger
	stopChan  chan struct{}

	// scanMu не даёт обходам накладываться: обход читает и пишет флаги
	// notified неатомарно, параллельный запуск привёл бы к двойной отправке
	scanMu sync.Mutex
}

// NewScheduler создаёт новый планировщик
func NewScheduler(reminders *service.ReminderService, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		reminders: reminders,
		interval:  interval,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Duration("interval", s.interval))

	go s.runReminderTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runReminderTask периодически запускает обход напоминаний
func (s *Scheduler) runReminderTask(ctx context.Context) {
	// Первый обход сразу при старте
	s.scan(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.scan(ctx)
		case <-s.stopChan:
			s.logger.Info("Reminder task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Reminder task cancelled")
			return
		}
	}
}

// scan выполняет один обход, пропуская запуск, если предыдущий ещё идёт
func (s *Scheduler) scan(ctx context.Context) {
	if !s.scanMu.TryLock() {
		s.logger.Warn("Previous reminder scan still running, skipping")
		return
	}
	defer s.scanMu.Unlock()

	if err := s.reminders.Scan(ctx); err != nil {
		s.logger.Error("Reminder scan failed", zap.Error(err))
		return
	}
}
