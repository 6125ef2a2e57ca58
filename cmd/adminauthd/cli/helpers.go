package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	adminauth "github.com/hallgate/adminauth"
	"github.com/hallgate/adminauth/store/redistore"
	"github.com/hallgate/adminauth/store/sqlstore"
)

// backend bundles a credential store with the provisioning hook the
// CLI needs but the engine contract does not expose.
type backend struct {
	store     adminauth.CredentialStore
	provision func(context.Context, *adminauth.AdminCredential) error
	close     func() error
}

// openBackend opens the store selected by store.driver: "sqlite"
// (default) or "redis".
func openBackend() (*backend, error) {
	switch driver := viper.GetString("store.driver"); driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     viper.GetString("store.redis_addr"),
			Password: viper.GetString("store.redis_password"),
			DB:       viper.GetInt("store.redis_db"),
		})
		store := redistore.New(client, viper.GetString("store.redis_prefix"))
		return &backend{
			store:     store,
			provision: store.PutCredential,
			close:     client.Close,
		}, nil

	case "", "sqlite":
		dataDir := viper.GetString("store.data_dir")
		if dataDir == "" {
			home, _ := os.UserHomeDir()
			dataDir = home + "/.adminauthd"
		}
		store, err := sqlstore.New(dataDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return &backend{
			store:     store,
			provision: store.PutCredential,
			close:     store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// engineConfig starts from the engine defaults and applies any
// overrides present in the loaded configuration.
func engineConfig() adminauth.Config {
	cfg := adminauth.DefaultConfig()

	if v := viper.GetInt("lockout.max_failed_attempts"); v > 0 {
		cfg.Lockout.MaxFailedAttempts = uint32(v)
	}
	if v := viper.GetDuration("lockout.duration"); v > 0 {
		cfg.Lockout.LockoutDuration = v
	}
	if v := viper.GetDuration("session.ttl"); v > 0 {
		cfg.Session.TTL = v
	}
	if v := viper.GetString("totp.issuer"); v != "" {
		cfg.TOTP.Issuer = v
	}
	cfg.Metrics.Enabled = true

	return cfg
}
