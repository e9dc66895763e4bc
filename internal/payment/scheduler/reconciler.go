package scheduler

import (
	"context"
	"sync"
	"time"

	"inquiry-backend/internal/payment/usecase"

	"github.com/sirupsen/logrus"
)

// Reconciler periodically asks the gateway about unpaid orders so a lost
// notification does not leave a paid order unpaid.
type Reconciler struct {
	payments usecase.PaymentUsecase
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewReconciler creates a new reconciler. A non-positive interval disables it.
func NewReconciler(payments usecase.PaymentUsecase, interval time.Duration) *Reconciler {
	return &Reconciler{
		payments: payments,
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the reconcile loop
func (r *Reconciler) Start() {
	log := logrus.WithField("component", "reconciler")
	if r.interval <= 0 {
		log.Info("reconciler disabled")
		close(r.done)
		return
	}

	log.WithField("interval", r.interval.String()).Info("starting payment reconciler")

	go func() {
		defer close(r.done)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.runOnce()
			case <-r.stopChan:
				log.Info("reconciler stopped")
				return
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight pass to finish.
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
	<-r.done
}

func (r *Reconciler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), r.interval)
	defer cancel()

	applied, err := r.payments.ReconcilePending(ctx)
	log := logrus.WithField("component", "reconciler")
	if err != nil {
		log.WithError(err).Error("reconcile pass failed")
		return
	}
	if applied > 0 {
		log.WithField("applied", applied).Info("confirmed payments from gateway")
	}
}
