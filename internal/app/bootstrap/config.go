// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/fellowship/internal/app/system/notes"
	"github.com/dalemusser/fellowship/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for Fellowship.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: FELLOWSHIP_MONGO_URI, FELLOWSHIP_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "fellowship", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "fellowship-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// Audit notes
	{Name: "audit_notes", Default: "all", Desc: "Membership audit notes: 'all' (db+log), 'db', 'log', or 'off'"},

	// Retry policy for store calls that fail with a network error
	{Name: "retry_max", Default: 3, Desc: "Retries after the first attempt"},
	{Name: "retry_base_delay", Default: "500ms", Desc: "Wait before the first retry; doubles each retry"},
	{Name: "retry_max_delay", Default: "10s", Desc: "Cap on a single retry wait"},

	// Event forwarding
	{Name: "redis_addr", Default: "", Desc: "Redis address for event forwarding (blank disables it)"},
	{Name: "redis_channel", Default: "fellowship.events", Desc: "Redis channel domain events are published on"},

	// Notifications
	{Name: "admin_notify", Default: true, Desc: "Notify church admins about new group requests"},
	{Name: "outbox_retention", Default: "720h", Desc: "Age after which notifications are pruned from the outbox"},
	{Name: "outbox_prune_interval", Default: "1h", Desc: "How often the outbox is pruned"},

	// Join-request throttling
	{Name: "join_rate_limit", Default: 5, Desc: "Join requests a user may send per window"},
	{Name: "join_rate_window", Default: "10m", Desc: "Window for join_rate_limit"},

	// SuperAdmin bootstrap
	{Name: "superadmin_email", Default: "", Desc: "Email of the superadmin user (promotes/creates on startup)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, FELLOWSHIP_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "FELLOWSHIP", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),

		AuditNotes: appValues.String("audit_notes"),

		RetryMax:       appValues.Int("retry_max"),
		RetryBaseDelay: appValues.Duration("retry_base_delay", 500*time.Millisecond),
		RetryMaxDelay:  appValues.Duration("retry_max_delay", 10*time.Second),

		RedisAddr:    appValues.String("redis_addr"),
		RedisChannel: appValues.String("redis_channel"),

		AdminNotify:         appValues.Bool("admin_notify"),
		OutboxRetention:     appValues.Duration("outbox_retention", 30*24*time.Hour),
		OutboxPruneInterval: appValues.Duration("outbox_prune_interval", time.Hour),

		JoinRateLimit:  appValues.Int("join_rate_limit"),
		JoinRateWindow: appValues.Duration("join_rate_window", 10*time.Minute),

		SuperAdminEmail: appValues.String("superadmin_email"),
	}

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI is checked here to catch configuration errors early,
// before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database is required")
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)",
			appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize)
	}

	switch appCfg.AuditNotes {
	case notes.ModeAll, notes.ModeDB, notes.ModeLog, notes.ModeOff:
	default:
		return fmt.Errorf("audit_notes must be one of all, db, log, off (got %q)", appCfg.AuditNotes)
	}

	if err := appCfg.RetryConfig("config").Validate(); err != nil {
		return fmt.Errorf("retry settings: %w", err)
	}

	if appCfg.OutboxRetention <= 0 || appCfg.OutboxPruneInterval <= 0 {
		return fmt.Errorf("outbox_retention and outbox_prune_interval must be positive")
	}

	if appCfg.JoinRateLimit <= 0 || appCfg.JoinRateWindow <= 0 {
		return fmt.Errorf("join_rate_limit and join_rate_window must be positive")
	}

	return nil
}
