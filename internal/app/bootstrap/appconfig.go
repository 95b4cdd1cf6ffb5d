// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/fellowship/internal/app/system/resilient"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration (ports, TLS, logging,
// CORS, body limits), which lives in CoreConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: fellowship-session)
	SessionDomain string // Cookie domain (blank means current host)

	// AuditNotes is the membership note mode: all, db, log or off.
	AuditNotes string

	// Retry policy for network failures
	RetryMax       int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// Event forwarding (disabled when RedisAddr is blank)
	RedisAddr    string
	RedisChannel string

	// Notifications
	AdminNotify         bool          // notify church admins of new group requests
	OutboxRetention     time.Duration // age after which outbox rows are deleted
	OutboxPruneInterval time.Duration

	// Join requests allowed per user per window
	JoinRateLimit  int
	JoinRateWindow time.Duration

	// SuperAdminEmail is promoted (or created) as superadmin on startup.
	SuperAdminEmail string
}

// RetryConfig builds the executor retry policy, labelled name.
func (c AppConfig) RetryConfig(name string) resilient.Config {
	return resilient.Config{
		Name:       name,
		MaxRetries: c.RetryMax,
		BaseDelay:  c.RetryBaseDelay,
		MaxDelay:   c.RetryMaxDelay,
	}
}
