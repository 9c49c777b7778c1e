package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/topupgh/topup-api/internal/domain/user"
	"github.com/topupgh/topup-api/internal/domain/wallet"
)

// PlatformWallets is the slice of the wallet repository the sync job needs.
type PlatformWallets interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error)
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, metadata string) (*wallet.Wallet, error)
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, metadata string) (*wallet.Wallet, error)
}

// AdminFinder resolves the platform account that mirrors the provider float.
type AdminFinder interface {
	FirstAdmin(ctx context.Context) (*user.User, error)
}

// BalanceSync keeps the platform wallet aligned with the provider float by
// posting the difference as a regular ledger movement. The balance is never
// overwritten, so replaying movements still reproduces it.
type BalanceSync struct {
	wallets  PlatformWallets
	users    AdminFinder
	provider ProviderBalancer
	interval time.Duration
	stopCh   chan struct{}
}

// ProviderBalancer reports the remaining float with the external provider.
type ProviderBalancer interface {
	Balance(ctx context.Context) (decimal.Decimal, error)
}

func NewBalanceSync(wallets PlatformWallets, users AdminFinder, provider ProviderBalancer, interval time.Duration) *BalanceSync {
	if interval == 0 {
		interval = 5 * time.Minute
	}
	return &BalanceSync{
		wallets:  wallets,
		users:    users,
		provider: provider,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sync loop
func (b *BalanceSync) Start() {
	log.Info().Dur("interval", b.interval).Msg("Starting provider balance sync...")
	go b.loop()
}

// Stop gracefully stops the sync job
func (b *BalanceSync) Stop() {
	log.Info().Msg("Stopping provider balance sync...")
	close(b.stopCh)
}

func (b *BalanceSync) loop() {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.RunOnce()

	for {
		select {
		case <-ticker.C:
			b.RunOnce()
		case <-b.stopCh:
			return
		}
	}
}

// RunOnce performs a single sync pass.
func (b *BalanceSync) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	providerBalance, err := b.provider.Balance(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch provider balance, skipping sync")
		return
	}

	admin, err := b.users.FirstAdmin(ctx)
	if err != nil {
		log.Error().Err(err).Msg("No platform admin account for balance sync")
		return
	}

	wal, err := b.wallets.GetOrCreate(ctx, admin.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load platform wallet")
		return
	}

	delta := providerBalance.Sub(wal.Balance)
	if delta.IsZero() {
		return
	}

	if delta.IsPositive() {
		_, err = b.wallets.Credit(ctx, admin.ID, delta, "Provider balance sync adjustment")
	} else {
		_, err = b.wallets.Debit(ctx, admin.ID, delta.Neg(), "Provider balance sync adjustment")
	}
	if err != nil {
		log.Error().
			Err(err).
			Str("delta", delta.String()).
			Msg("Failed to post balance sync adjustment")
		return
	}

	log.Info().
		Str("provider_balance", providerBalance.String()).
		Str("delta", delta.String()).
		Msg("Platform wallet aligned with provider balance")
}
