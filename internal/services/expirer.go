package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// PendingExpirer periodically cancels escrows left PENDING longer than ttl.
type PendingExpirer struct {
	svc      *EscrowService
	ttl      time.Duration
	interval time.Duration
	log      logrus.FieldLogger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewPendingExpirer(svc *EscrowService, ttl, interval time.Duration, log logrus.FieldLogger) *PendingExpirer {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PendingExpirer{
		svc:      svc,
		ttl:      ttl,
		interval: interval,
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the periodic check in its own goroutine.
func (e *PendingExpirer) Start() {
	ticker := time.NewTicker(e.interval)
	go func() {
		defer close(e.doneCh)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.expireOnce()
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stop ends the loop and waits for a running pass to finish.
func (e *PendingExpirer) Stop() {
	close(e.stopCh)
	<-e.doneCh
}

func (e *PendingExpirer) expireOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), e.interval)
	defer cancel()
	n, err := e.svc.ExpirePending(ctx, e.ttl)
	if err != nil {
		e.log.WithError(err).Error("expire pending escrows")
		return
	}
	if n > 0 {
		e.log.WithField("count", n).Info("expired pending escrows")
	}
}
