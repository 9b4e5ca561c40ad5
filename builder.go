package sessionauth

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/sessionauth/internal/audit"
	"github.com/MrEthical07/sessionauth/internal/flows"
	"github.com/MrEthical07/sessionauth/internal/stores"
	"github.com/MrEthical07/sessionauth/internal/stores/postgres"
	"github.com/MrEthical07/sessionauth/jwt"
	"github.com/MrEthical07/sessionauth/notify"
	"github.com/MrEthical07/sessionauth/password"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Stores that are not supplied fall back to
// in-memory backends: WithRedis replaces the challenge and revocation
// stores, WithPostgres the user directory, and explicit With*Store calls
// win over both. A Builder can be built once.
type Builder struct {
	config Config

	redis    redis.UniversalClient
	postgres *sql.DB
	hasher   password.Hasher

	users       UserDirectory
	challenges  ChallengeStore
	revocations RevocationStore
	notifier    Notifier
	logger      *slog.Logger
	auditSink   AuditSink
	now         func() time.Time

	built bool
}

func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis stores challenges and revocations in Redis.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPostgres stores users in PostgreSQL. The schema must already be
// migrated; see postgres.Migrate.
func (b *Builder) WithPostgres(db *sql.DB) *Builder {
	b.postgres = db
	return b
}

// WithPasswordHasher overrides the argon2id hasher built from Config.Password.
func (b *Builder) WithPasswordHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

func (b *Builder) WithUserDirectory(users UserDirectory) *Builder {
	b.users = users
	return b
}

func (b *Builder) WithChallengeStore(challenges ChallengeStore) *Builder {
	b.challenges = challenges
	return b
}

func (b *Builder) WithRevocationStore(revocations RevocationStore) *Builder {
	b.revocations = revocations
	return b
}

// WithNotifier sets the 2FA mail channel. Without one, codes are only
// logged (redacted) through notify.Log.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit destination. A non-nil sink turns auditing
// on regardless of Config.Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithClock overrides time.Now for token issuance, verification and
// revocation lifetimes. Stores built by the engine share it; stores passed in
// with the With*Store options keep their own clock. Redis key TTLs always run
// on the server's clock.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if b.auditSink != nil {
		cfg.Audit.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "sessionauth")

	// -------- TOKENS --------
	tokens, err := jwt.NewManager(jwt.Config{
		Secret: cloneBytes(cfg.JWT.Secret),
		TTL:    cfg.JWT.TTL,
		Issuer: cfg.JWT.Issuer,
		Leeway: cfg.JWT.Leeway,
		Now:    now,
	})
	if err != nil {
		return nil, err
	}

	// -------- STORES --------
	hasher := b.hasher
	if hasher == nil {
		hasher, err = password.NewArgon2(cfg.hasherConfig())
		if err != nil {
			return nil, err
		}
	}

	var pruneTargets []stores.Pruner

	users := b.users
	if users == nil {
		if b.postgres != nil {
			users = postgres.NewUsers(b.postgres, hasher)
		} else {
			users = stores.NewMemoryUsers(hasher)
		}
	}

	challenges := b.challenges
	if challenges == nil {
		if b.redis != nil {
			challenges = stores.NewRedisChallenges(b.redis, cfg.Challenge.RedisPrefix, cfg.Challenge.TTL).WithClock(now)
		} else {
			mem := stores.NewMemoryChallenges(cfg.Challenge.TTL).WithClock(now)
			pruneTargets = append(pruneTargets, mem)
			challenges = mem
		}
	}

	revocations := b.revocations
	if revocations == nil {
		if b.redis != nil {
			revocations = stores.NewRedisRevocations(b.redis, cfg.Revocation.RedisPrefix)
		} else {
			mem := stores.NewMemoryRevocations().WithClock(now)
			pruneTargets = append(pruneTargets, mem)
			revocations = mem
		}
	}

	notifier := b.notifier
	if notifier == nil {
		notifier = notify.NewLog(logger)
	}

	engine := &Engine{
		config:      cfg,
		users:       users,
		challenges:  challenges,
		revocations: revocations,
		notifier:    notifier,
		tokens:      tokens,
		logger:      logger,
		metrics:     NewMetrics(cfg.Metrics),
		now:         now,
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Now:        now,
	}, b.auditSink)
	engine.flow = flows.New(engine.flowDeps())
	engine.stopPruning = stores.StartPruning(context.Background(), cfg.Revocation.PruneInterval, logger, pruneTargets...)

	b.built = true

	return engine, nil
}
