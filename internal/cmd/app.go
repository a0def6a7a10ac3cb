package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/photovault/photovault/pkg/config"
	"github.com/photovault/photovault/pkg/email"
	"github.com/photovault/photovault/pkg/logger"
	"github.com/photovault/photovault/pkg/pg"
	"github.com/photovault/photovault/pkg/redis"
	"github.com/photovault/photovault/pkg/requestid"
	"github.com/photovault/photovault/pkg/txn"
	"github.com/photovault/photovault/svc/account"
	"github.com/photovault/photovault/svc/billing"
	"github.com/photovault/photovault/svc/commission"
	"github.com/photovault/photovault/svc/directory"
	"github.com/photovault/photovault/svc/family"
	"github.com/photovault/photovault/svc/gallery"
	"github.com/photovault/photovault/svc/ledger"
	"github.com/photovault/photovault/svc/notify"
	"github.com/photovault/photovault/svc/payment"
	"github.com/photovault/photovault/svc/payment/paymenttest"
)

// app is the wired object graph shared by every subcommand.
type app struct {
	cfg appConfig
	log *slog.Logger

	pool  *pgxpool.Pool
	redis *goredis.Client

	directory   directory.Directory
	accounts    account.Service
	family      family.Service
	copier      *gallery.Copier
	commissions commission.Service
	processor   *billing.Processor
	payouts     *commission.Runner
}

type stores struct {
	accounts    account.Store
	family      family.Store
	galleries   gallery.Store
	commissions commission.Store
	ledger      ledger.Store
	directory   directory.Directory
	// tx wraps multi-store writes. galleryTx serialises gallery copies.
	tx        txn.Runner
	galleryTx txn.Runner
}

func newLogger(cfg appConfig) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, cfg.Name),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithContextExtractors(requestid.LogExtractor()),
	}
	if cfg.Env == logger.EnvProduction {
		opts = append(opts, logger.WithRedact("to", "email"))
	}
	log := logger.New(opts...)
	logger.SetAsDefault(log)
	return log
}

func newApp(ctx context.Context) (*app, error) {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: newLogger(cfg)}

	st, err := a.openStores(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.wire(ctx, st); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStores(ctx context.Context) (*stores, error) {
	switch a.cfg.StoreDriver {
	case driverMemory:
		galleries := gallery.NewMemoryStore()
		a.log.WarnContext(ctx, "using in-memory stores; data is lost on restart")
		return &stores{
			accounts:    account.NewMemoryStore(),
			family:      family.NewMemoryStore(),
			galleries:   galleries,
			commissions: commission.NewMemoryStore(),
			ledger:      ledger.NewMemoryStore(),
			directory:   directory.NewMemory(),
			tx:          txn.Nop{},
			galleryTx:   galleries,
		}, nil
	case driverPostgres:
		pool, err := a.connectPG(ctx)
		if err != nil {
			return nil, err
		}
		tx := pg.NewTransactor(pool)
		return &stores{
			accounts:    account.NewPGStore(pool),
			family:      family.NewPGStore(pool),
			galleries:   gallery.NewPGStore(pool),
			commissions: commission.NewPGStore(pool),
			ledger:      ledger.NewPGStore(pool),
			directory:   directory.NewPG(pool),
			tx:          tx,
			galleryTx:   tx,
		}, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", a.cfg.StoreDriver)
	}
}

func (a *app) connectPG(ctx context.Context) (*pgxpool.Pool, error) {
	var cfg pg.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.pool = pool
	return pool, nil
}

func (a *app) wire(ctx context.Context, st *stores) error {
	var (
		emailCfg  email.Config
		notifyCfg notify.Config
		familyCfg family.Config
	)
	if err := errors.Join(config.Load(&emailCfg), config.Load(&notifyCfg), config.Load(&familyCfg)); err != nil {
		return err
	}

	sender, err := email.New(emailCfg, a.log)
	if err != nil {
		return err
	}
	mailer, err := notify.NewMailer(sender, st.directory, notifyCfg, a.log)
	if err != nil {
		return err
	}

	accountOpts := []account.ServiceOption{
		account.WithLogger(a.log.With(logger.Component("account"))),
		account.WithNotifier(mailer),
		account.WithSweepBatch(a.cfg.SweepBatch),
	}
	switch a.cfg.StatusCache {
	case "memory":
		accountOpts = append(accountOpts, account.WithStatusCache(
			account.NewMemoryStatusCache(a.cfg.StatusCacheSize, a.cfg.StatusCacheTTL)))
	case "redis":
		var rcfg redis.Config
		if err := config.Load(&rcfg); err != nil {
			return err
		}
		client, err := redis.Connect(ctx, rcfg)
		if err != nil {
			return err
		}
		a.redis = client
		accountOpts = append(accountOpts, account.WithStatusCache(
			account.NewRedisStatusCache(client, rcfg.KeyPrefix, a.cfg.StatusCacheTTL)))
	case "none", "":
	default:
		return fmt.Errorf("unknown STATUS_CACHE %q", a.cfg.StatusCache)
	}
	a.accounts = account.NewService(st.accounts, accountOpts...)
	a.directory = st.directory

	providers, checkout, transferer, err := a.providers()
	if err != nil {
		return err
	}

	a.family = family.NewService(st.family, a.accounts, checkout, st.directory, st.galleries, familyCfg,
		family.WithLogger(a.log.With(logger.Component("family"))),
		family.WithTxRunner(st.tx),
		family.WithNotifier(mailer),
	)
	a.copier = gallery.NewCopier(st.galleries, a.accounts, a.family,
		gallery.WithLogger(a.log.With(logger.Component("gallery"))),
		gallery.WithTxRunner(st.galleryTx),
	)
	a.commissions = commission.NewService(st.commissions,
		commission.WithLogger(a.log.With(logger.Component("commission"))),
	)
	lg := ledger.New(st.ledger, st.tx, ledger.WithLogger(a.log.With(logger.Component("ledger"))))
	a.processor = billing.NewProcessor(lg, a.accounts, a.commissions, a.family, providers,
		billing.WithLogger(a.log.With(logger.Component("billing"))),
		billing.WithGalleries(st.galleries),
	)
	if transferer != nil {
		a.payouts = commission.NewRunner(st.commissions, transferer, st.directory,
			commission.WithBatchSize(a.cfg.PayoutBatch),
			commission.WithConcurrency(a.cfg.PayoutConcurrency),
			commission.WithRunnerLogger(a.log.With(logger.Component("payouts"))),
		)
	}
	return nil
}

// providers builds every configured billing provider. Webhooks are accepted
// from all of them; checkouts go through BILLING_PROVIDER and payouts through
// Stripe Connect when it is configured.
func (a *app) providers() (all []payment.Provider, checkout payment.Provider, transferer payment.Transferer, err error) {
	var (
		stripeCfg payment.StripeConfig
		paddleCfg payment.PaddleConfig
	)
	if err := errors.Join(config.Load(&stripeCfg), config.Load(&paddleCfg)); err != nil {
		return nil, nil, nil, err
	}

	byName := make(map[string]payment.Provider)
	if stripeCfg.SecretKey != "" {
		sp, err := payment.NewStripeProvider(stripeCfg)
		if err != nil {
			return nil, nil, nil, err
		}
		byName[sp.Name()] = sp
		transferer = sp
	}
	if paddleCfg.APIKey != "" {
		pp, err := payment.NewPaddleProvider(paddleCfg)
		if err != nil {
			return nil, nil, nil, err
		}
		byName[pp.Name()] = pp
	}
	if a.cfg.BillingProvider == "fake" {
		fake := paymenttest.New()
		fake.Secret = a.cfg.FakeWebhookSecret
		byName[fake.Name()] = fake
		if transferer == nil {
			transferer = fake
		}
	}

	checkout, ok := byName[a.cfg.BillingProvider]
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: BILLING_PROVIDER %q is not configured", payment.ErrInvalidConfig, a.cfg.BillingProvider)
	}
	for _, p := range byName {
		all = append(all, p)
	}
	return all, checkout, transferer, nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("close redis", logger.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

var errPayoutsDisabled = errors.New("payouts need STRIPE_SECRET_KEY or BILLING_PROVIDER=fake")
