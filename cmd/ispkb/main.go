package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hrygo/ispkb/internal/observability"
	"github.com/hrygo/ispkb/internal/profile"
	"github.com/hrygo/ispkb/internal/version"
	"github.com/hrygo/ispkb/server"
	"github.com/hrygo/ispkb/store"
	"github.com/hrygo/ispkb/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "ispkb",
	Short: "Knowledge base backend for image signal processing teams.",
	RunE: func(_ *cobra.Command, _ []string) error {
		instanceProfile := &profile.Profile{
			Mode:             viper.GetString("mode"),
			Addr:             viper.GetString("addr"),
			Port:             viper.GetInt("port"),
			Data:             viper.GetString("data"),
			Driver:           viper.GetString("driver"),
			DSN:              viper.GetString("dsn"),
			LogLevel:         viper.GetString("log-level"),
			Secret:           viper.GetString("secret"),
			TokenTTL:         viper.GetDuration("token-ttl"),
			AdminUsername:    viper.GetString("admin-username"),
			AdminPassword:    viper.GetString("admin-password"),
			CacheDriver:      viper.GetString("cache-driver"),
			RedisURL:         viper.GetString("redis-url"),
			CacheOpTimeout:   viper.GetDuration("cache-op-timeout"),
			CacheMemoryItems: viper.GetInt("cache-memory-items"),
			AIBaseURL:        viper.GetString("ai-base-url"),
			AIAPIKey:         viper.GetString("ai-api-key"),
			AIModel:          viper.GetString("ai-model"),
			ChatRateLimit:    viper.GetInt("chat-rate-limit"),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			return err
		}
		instanceProfile.Version = version.GetCurrentVersion(instanceProfile.Mode)

		logger := observability.NewLogger(os.Stderr, instanceProfile.Mode, instanceProfile.LogLevel)
		slog.SetDefault(logger)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			return errors.Wrap(err, "failed to create db driver")
		}
		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			return errors.Wrap(err, "failed to migrate")
		}

		s, err := server.NewServer(ctx, instanceProfile, storeInstance, logger)
		if err != nil {
			return errors.Wrap(err, "failed to create server")
		}

		c := make(chan os.Signal, 1)
		// Trigger graceful shutdown on SIGINT or SIGTERM.
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)

		if err := s.Start(ctx); err != nil {
			return errors.Wrap(err, "failed to start server")
		}
		printGreetings(instanceProfile)

		<-c
		s.Shutdown(ctx)
		return nil
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)
	viper.SetDefault("log-level", "info")
	viper.SetDefault("chat-rate-limit", 10)

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("addr", "", "address of server")
	flags.Int("port", 8081, "port of server")
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", "database driver, sqlite or postgres")
	flags.String("dsn", "", "database source name (aka. DSN)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("secret", "", "token signing secret, required in prod mode")
	flags.Duration("token-ttl", 0, "access token lifetime (default 30m)")
	flags.String("admin-username", "", "admin created at startup when no admin exists")
	flags.String("admin-password", "", "password of the bootstrap admin")
	flags.String("cache-driver", "", "cache backend: redis, memory or none")
	flags.String("redis-url", "", "redis connection url")
	flags.Duration("cache-op-timeout", 0, "timeout of a single cache operation (default 250ms)")
	flags.Int("cache-memory-items", 0, "entries kept by the memory cache (default 1000)")
	flags.String("ai-base-url", "", "OpenAI compatible endpoint")
	flags.String("ai-api-key", "", "API key of the AI endpoint, empty disables AI")
	flags.String("ai-model", "", "chat model name")
	flags.Int("chat-rate-limit", 10, "chat requests per user and minute")

	flags.VisitAll(func(f *pflag.Flag) {
		if err := viper.BindPFlag(f.Name, f); err != nil {
			panic(err)
		}
	})

	viper.SetEnvPrefix("ispkb")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("ispkb %s started successfully!\n", p.Version)
	fmt.Printf("Data directory: %s\n", p.Data)
	fmt.Printf("Database driver: %s\n", p.Driver)
	fmt.Printf("Cache driver: %s\n", p.CacheDriver)
	fmt.Printf("Mode: %s\n", p.Mode)
	if len(p.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", p.Port)
		fmt.Printf("Accessing ispkb via http://localhost:%d\n", p.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", p.Addr, p.Port)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
