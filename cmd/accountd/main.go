package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/accountd/internal/config"
	"github.com/xxxsen/accountd/internal/db"
	"github.com/xxxsen/accountd/internal/handler"
	"github.com/xxxsen/accountd/internal/job"
	"github.com/xxxsen/accountd/internal/keycache"
	"github.com/xxxsen/accountd/internal/middleware"
	"github.com/xxxsen/accountd/internal/pkg/rsakey"
	"github.com/xxxsen/accountd/internal/repo"
	"github.com/xxxsen/accountd/internal/schedule"
	"github.com/xxxsen/accountd/internal/service"
)

func main() {
	var (
		configPath string
		envPath    string
	)

	rootCmd := &cobra.Command{
		Use:   "accountd",
		Short: "account service",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", "", "optional dotenv file with ACCOUNTD_* overrides")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run accountd server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sqlDB, err := setup(configPath, envPath)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			return runServer(cfg, sqlDB)
		},
	}

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "purge soft deleted accounts past retention and expired otp records once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sqlDB, err := setup(configPath, envPath)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			ctx := cmd.Context()
			accounts, otp := newLifecycle(cfg, sqlDB)
			if err := schedule.RunOnce(ctx, job.NewAccountPurgeJob(accounts)); err != nil {
				return err
			}
			return schedule.RunOnce(ctx, job.NewOtpCleanupJob(otp))
		},
	}

	rootCmd.AddCommand(runCmd, purgeCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(configPath, envPath string) (*config.Config, *sql.DB, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath, envPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	sqlDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(context.Background(), sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, sqlDB, nil
}

func newLifecycle(cfg *config.Config, sqlDB *sql.DB) (*service.AccountService, *service.OtpService) {
	accounts := service.NewAccountService(
		repo.NewUserRepo(sqlDB),
		time.Duration(cfg.Account.RetentionDays)*24*time.Hour,
		cfg.Account.PurgeBatch,
	)
	otp := service.NewOtpService(repo.NewOtpRepo(sqlDB), service.NewNotifier(cfg.Mail), service.OtpOptions{
		Length:      cfg.OTP.Length,
		TTL:         time.Duration(cfg.OTP.TTLSeconds) * time.Second,
		MaxAttempts: cfg.OTP.MaxAttempts,
		Cooldown:    time.Duration(cfg.OTP.CooldownSeconds) * time.Second,
	})
	return accounts, otp
}

func newKeyCache(cfg config.TransportKey, ttl time.Duration) (keycache.Cache, func(), error) {
	if cfg.Cache.Type != "redis" {
		return keycache.NewLRU(cfg.Cache.Size, ttl), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return keycache.NewRedis(client, cfg.Cache.Redis.Prefix, ttl), func() { _ = client.Close() }, nil
}

func runServer(cfg *config.Config, sqlDB *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("key_cache", cfg.TransportKey.Cache.Type),
		zap.Int("key_bits", cfg.TransportKey.Bits),
		zap.Bool("mail", cfg.Mail.Enabled()),
	)

	keyTTL := time.Duration(cfg.TransportKey.TTLSeconds) * time.Second
	cache, closeCache, err := newKeyCache(cfg.TransportKey, keyTTL+service.KeyExpiryGrace)
	if err != nil {
		return fmt.Errorf("init key cache: %w", err)
	}
	defer closeCache()
	padding, err := rsakey.ParsePadding(cfg.TransportKey.Padding)
	if err != nil {
		return err
	}

	accounts, otp := newLifecycle(cfg, sqlDB)
	keys := service.NewKeyIssuer(cache, cfg.TransportKey.Bits, keyTTL, padding)
	authService := service.NewAuthService(
		repo.NewUserRepo(sqlDB),
		accounts,
		keys,
		otp,
		[]byte(cfg.JWTSecret),
		time.Hour*time.Duration(cfg.JWTTTLHours),
		cfg.RegisterRequiresOTP,
	)

	deps := handler.RouterDeps{
		Auth:       handler.NewAuthHandler(authService),
		Otp:        handler.NewOtpHandler(otp),
		Accounts:   handler.NewAccountHandler(authService, accounts),
		JWTSecret:  []byte(cfg.JWTSecret),
		AdminToken: cfg.AdminToken,
		OtpWindow:  time.Duration(cfg.RateLimit.OTPWindowSeconds) * time.Second,
		OtpBurst:   cfg.RateLimit.OTPBurst,
		KeyWindow:  time.Duration(cfg.RateLimit.KeyWindowSeconds) * time.Second,
		KeyBurst:   cfg.RateLimit.KeyBurst,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var scheduler schedule.Scheduler = schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewAccountPurgeJob(accounts), cfg.Account.PurgeCron); err != nil {
		return err
	}
	if err := scheduler.AddJob(job.NewOtpCleanupJob(otp), cfg.OTP.CleanupCron); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
