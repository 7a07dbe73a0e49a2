package cli

import (
	"fmt"

	"github.com/trolley-watch/internal/cache"
	"github.com/trolley-watch/internal/config"
	"github.com/trolley-watch/internal/logger"
	"github.com/trolley-watch/internal/models"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// RootOptions 全局参数及按需初始化的资源
type RootOptions struct {
	ConfigFile string

	cfg *config.Config
	db  *gorm.DB
}

// NewRootCommand 创建 cartctl 根命令
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "cartctl",
		Short:         "trolley-watch operations CLI",
		Long:          "Manage operators, tokens, POS credentials and trolleys, and emit cart events into any configured channel.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(viper.New(), opts.ConfigFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts.cfg = cfg
			logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			opts.close()
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default: ./config.yml)")

	cmd.AddCommand(NewOperatorCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewCredentialCommand(opts))
	cmd.AddCommand(NewTrolleyCommand(opts))
	cmd.AddCommand(NewPolicyCommand(opts))
	cmd.AddCommand(NewEmitCommand(opts))

	return cmd
}

// Config 返回已加载的配置
func (o *RootOptions) Config() *config.Config {
	if o.cfg == nil {
		o.cfg = &config.Config{}
	}
	return o.cfg
}

// DB 打开数据库并执行迁移
func (o *RootOptions) DB() (*gorm.DB, error) {
	if o.db != nil {
		return o.db, nil
	}
	cfg := o.Config()
	db, err := models.OpenDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, gormlogger.Silent)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := models.MigrateTables(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	o.db = db
	return db, nil
}

// Redis 初始化 Redis，未启用时报错
func (o *RootOptions) Redis() error {
	if cache.Enabled() {
		return nil
	}
	if err := cache.InitRedis(&o.Config().Redis); err != nil {
		return err
	}
	if !cache.Enabled() {
		return fmt.Errorf("redis is disabled (redis.enabled=false)")
	}
	return nil
}

func (o *RootOptions) close() {
	if o.db != nil {
		if sqlDB, err := o.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		o.db = nil
	}
	_ = cache.Close()
	logger.Sync()
}
