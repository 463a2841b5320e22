package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const maxConnectBackoff = 30 * time.Second

// DSN builds the postgres connection string for cfg.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// InitDB connects to postgres, retrying with exponential backoff until it succeeds.
func InitDB(cfg DBConfig) *gorm.DB {
	logg := GetLogger()

	var attempt int
	for {
		attempt++
		db, err := gorm.Open(postgres.Open(cfg.DSN()), initConfig())
		if err == nil {
			tunePool(db, cfg)
			if pluginErr := db.Use(otelgorm.NewPlugin()); pluginErr != nil {
				logg.Warnf("db connected but failed to install otelgorm plugin: %v", pluginErr)
			}
			logg.WithField("attempt", attempt).Info("connected to database")
			return db
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > maxConnectBackoff {
			sleep = maxConnectBackoff
		}
		logg.WithFields(logrus.Fields{
			"attempt": attempt,
			"retry":   sleep.String(),
		}).Warnf("failed to connect database: %v", err)
		time.Sleep(sleep)
	}
}

func tunePool(db *gorm.DB, cfg DBConfig) {
	sqlDB, err := db.DB()
	if err != nil || sqlDB == nil {
		return
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         GormLogger(),
		TranslateError: true,
	}
}

// GormLogger logs only errors and queries slower than a second.
func GormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:      false,
			LogLevel:      logger.Error,
			SlowThreshold: time.Second,
		},
	)
}
