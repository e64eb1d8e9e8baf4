package fincore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/edupay/fincore/config"
	"github.com/edupay/fincore/database"
	"github.com/edupay/fincore/internal/apierror"
	redlock "github.com/edupay/fincore/internal/lock"
	redis_db "github.com/edupay/fincore/internal/redis-db"
	"github.com/edupay/fincore/model"
)

// Fincore is the ledger core. It owns the datasource and the redis client
// used for serialization, and holds the collaborator contracts the engines
// consult. All money mutations go through here; callers never touch the
// datasource directly.
type Fincore struct {
	datasource database.IDataSource
	redis      redis.UniversalClient
	gateway    PaymentGateway
	rates      RateProvider
	directory  PrincipalDirectory
	grants     GrantSource

	feePercent        decimal.Decimal
	defaultCommission decimal.Decimal
	lockTimeout       time.Duration
	lockWait          time.Duration
}

type Option func(*Fincore)

// WithRedis injects an existing redis client instead of dialing the
// configured address. Tests use this with miniredis.
func WithRedis(client redis.UniversalClient) Option {
	return func(f *Fincore) { f.redis = client }
}

func WithGateway(gateway PaymentGateway) Option {
	return func(f *Fincore) { f.gateway = gateway }
}

func WithRateProvider(rates RateProvider) Option {
	return func(f *Fincore) { f.rates = rates }
}

func WithDirectory(directory PrincipalDirectory) Option {
	return func(f *Fincore) { f.directory = directory }
}

func WithGrantSource(grants GrantSource) Option {
	return func(f *Fincore) { f.grants = grants }
}

// New constructs the core from the loaded configuration. Engine knobs are
// resolved once here; nothing reads the environment at call time.
func New(db database.IDataSource, opts ...Option) (*Fincore, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	f := &Fincore{
		datasource:        db,
		feePercent:        decimal.NewFromFloat(cfg.Ledger.ConversionFeePercent),
		defaultCommission: decimal.NewFromFloat(cfg.Ledger.DefaultCommissionRate),
		lockTimeout:       time.Duration(cfg.Ledger.LockTimeoutSec) * time.Second,
		lockWait:          time.Duration(cfg.Ledger.LockWaitSec) * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.redis == nil {
		rds, err := redis_db.NewRedisClient([]string{cfg.Redis.Dns})
		if err != nil {
			return nil, err
		}
		f.redis = rds.Client()
	}
	return f, nil
}

// acquireLock blocks until the key is held or the wait window runs out. The
// lock bounds how long a crashed holder can wedge the key; every caller
// releases through releaseLock on all paths.
func (f *Fincore) acquireLock(ctx context.Context, key string) (*redlock.Locker, error) {
	locker := redlock.NewLocker(f.redis, key, model.GenerateUUIDWithSuffix("loc"))
	if err := locker.WaitLock(ctx, f.lockTimeout, f.lockWait); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("Could not acquire lock on %s", key), err)
	}
	return locker, nil
}

func (f *Fincore) releaseLock(ctx context.Context, locker *redlock.Locker) {
	if err := locker.Unlock(ctx); err != nil {
		logrus.Errorf("failed to release lock: %v", err)
	}
}

// getOrCreateAccount resolves the account for a pair, creating it lazily on
// first use. Unknown principals are refused before any account exists for
// them; once a principal holds an account the directory is not consulted
// again.
func (f *Fincore) getOrCreateAccount(ctx context.Context, principal model.Principal, currency string) (*model.Account, error) {
	account, err := f.datasource.GetAccount(ctx, principal, currency)
	if err == nil {
		return account, nil
	}
	if !apierror.Is(err, apierror.ErrNotFound) {
		return nil, err
	}

	if f.directory != nil {
		exists, err := f.directory.Exists(ctx, principal)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrExternalService,
				"Could not verify principal with directory", err)
		}
		if !exists {
			return nil, apierror.NewAPIError(apierror.ErrPrincipalNotFound,
				fmt.Sprintf("Principal '%s' is not known", principal.Key()), nil)
		}
	}
	return model.NewAccount(principal, currency), nil
}
