package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/topupgh/topup-api/internal/domain/transaction"
	"github.com/topupgh/topup-api/internal/pkg/tpp"
)

// PendingStore lists transactions awaiting settlement and re-reads a single
// transaction right before settling it.
type PendingStore interface {
	ListPending(ctx context.Context, limit int) ([]transaction.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error)
}

// StatusQuerier asks the provider for the current state of a transaction.
type StatusQuerier interface {
	TransactionStatus(ctx context.Context, reference string) (*tpp.Response, error)
}

// Settler applies the financial outcome of a settled transaction.
type Settler interface {
	Success(ctx context.Context, trx *transaction.Transaction, providerResponse []byte) error
	Failure(ctx context.Context, trx *transaction.Transaction, providerResponse []byte) error
	StillPending(ctx context.Context, reference string, providerResponse []byte) error
}

// Reconciler periodically re-queries the provider for PENDING transactions
// and settles them. It is the only component allowed to mark a transaction
// FAILED: the purchase path always leaves ambiguity as PENDING.
type Reconciler struct {
	store     PendingStore
	provider  StatusQuerier
	settler   Settler
	interval  time.Duration
	batchSize int
	stopCh    chan struct{}
}

func NewReconciler(store PendingStore, provider StatusQuerier, settler Settler, interval time.Duration, batchSize int) *Reconciler {
	if interval == 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Reconciler{
		store:     store,
		provider:  provider,
		settler:   settler,
		interval:  interval,
		batchSize: batchSize,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background reconciliation loop
func (r *Reconciler) Start() {
	log.Info().
		Dur("interval", r.interval).
		Int("batch_size", r.batchSize).
		Msg("Starting transaction reconciler...")
	go r.loop()
}

// Stop gracefully stops the reconciler
func (r *Reconciler) Stop() {
	log.Info().Msg("Stopping transaction reconciler...")
	close(r.stopCh)
}

func (r *Reconciler) loop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RunOnce()

	for {
		select {
		case <-ticker.C:
			r.RunOnce()
		case <-r.stopCh:
			return
		}
	}
}

// RunOnce processes a single batch of pending transactions. A failure on one
// transaction never aborts the rest of the batch.
func (r *Reconciler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pending, err := r.store.ListPending(ctx, r.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list pending transactions")
		return
	}
	if len(pending) == 0 {
		return
	}

	log.Debug().Int("count", len(pending)).Msg("Reconciling pending transactions")

	for i := range pending {
		if err := r.reconcileOne(ctx, &pending[i]); err != nil {
			log.Error().
				Err(err).
				Str("reference", pending[i].Reference).
				Msg("Failed to reconcile transaction")
		}
	}
}

func (r *Reconciler) reconcileOne(ctx context.Context, trx *transaction.Transaction) error {
	resp, err := r.provider.TransactionStatus(ctx, trx.Reference)
	if err != nil {
		// Provider unreachable: leave PENDING, the next cycle retries.
		if errors.Is(err, tpp.ErrUnavailable) {
			log.Warn().
				Str("reference", trx.Reference).
				Msg("Provider unavailable during reconciliation, will retry")
			return nil
		}
		return err
	}

	if resp.Processing() {
		return r.settler.StillPending(ctx, trx.Reference, resp.Raw)
	}

	// Re-read right before settling: the purchase path may have settled
	// this transaction while the batch was in flight.
	current, err := r.store.GetByReference(ctx, trx.Reference)
	if err != nil {
		return err
	}
	if current.Status != transaction.StatusPending {
		log.Debug().
			Str("reference", current.Reference).
			Str("status", string(current.Status)).
			Msg("Transaction already settled, skipping")
		return nil
	}

	if resp.Success() {
		if err := r.settler.Success(ctx, current, resp.Raw); err != nil {
			return err
		}
		log.Info().
			Str("reference", current.Reference).
			Msg("Reconciled transaction as SUCCESS")
		return nil
	}

	// Definitive non-success, non-processing answer: the purchase failed
	// at the provider and the vendor gets their money back.
	if err := r.settler.Failure(ctx, current, resp.Raw); err != nil {
		return err
	}
	log.Info().
		Str("reference", current.Reference).
		Str("status_code", resp.StatusCode).
		Msg("Reconciled transaction as FAILED, vendor refunded")
	return nil
}
