package db

import (
	"context"
	"fmt"

	"github.com/lazypandaa/connect/config"
	"github.com/lazypandaa/connect/logger"
	"github.com/lazypandaa/connect/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

var ORM *gorm.DB

func dsnFromConfig(dbConf config.DBConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		dbConf.Host, dbConf.Port, dbConf.User, dbConf.Password, dbConf.DBName,
	)
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		// ошибки уникальности приходят как gorm.ErrDuplicatedKey
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	}
}

func ConnectDB() (err error) {
	if ORM != nil {
		logger.L().Info("ORM is already initialized")
		return nil
	}

	conf := config.AppConfig
	if conf == nil {
		return fmt.Errorf("AppConfig is not loaded")
	}

	var database *gorm.DB
	switch conf.Databases.Driver {
	case config.DriverSQLite:
		database, err = gorm.Open(sqlite.Open(conf.Databases.Path), gormConfig())
		if err != nil {
			return err
		}
	default:
		database, err = gorm.Open(postgres.Open(dsnFromConfig(conf.Databases.Master)), gormConfig())
		if err != nil {
			return err
		}

		// Реплики только для чтения
		if len(conf.Databases.Replicas) > 0 {
			replicas := make([]gorm.Dialector, 0, len(conf.Databases.Replicas))
			for _, r := range conf.Databases.Replicas {
				replicas = append(replicas, postgres.Open(dsnFromConfig(r)))
			}
			err = database.Use(dbresolver.Register(dbresolver.Config{
				Replicas: replicas,
				Policy:   dbresolver.RandomPolicy{},
			}).
				SetMaxOpenConns(conf.Databases.MaxOpenConns).
				SetMaxIdleConns(conf.Databases.MaxIdleConns).
				SetConnMaxLifetime(conf.Databases.ConnMaxLifetime))
			if err != nil {
				return err
			}
			logger.L().Info("read replicas registered", zap.Int("count", len(replicas)))
		}
	}

	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(conf.Databases.MaxOpenConns)
	sqlDB.SetMaxIdleConns(conf.Databases.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(conf.Databases.ConnMaxLifetime)

	if err = Migrate(database); err != nil {
		return err
	}

	ORM = database
	logger.L().Info("database connected", zap.String("driver", conf.Databases.Driver))
	return nil
}

// ConnectMemory поднимает SQLite в памяти (локальный запуск и тесты).
// Одно соединение: у каждого соединения ":memory:" своя база.
func ConnectMemory() (*gorm.DB, error) {
	database, err := gorm.Open(sqlite.Open(":memory:"), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err = Migrate(database); err != nil {
		return nil, err
	}
	ORM = database
	return database, nil
}

func Migrate(database *gorm.DB) error {
	err := database.AutoMigrate(
		&models.User{},
		&models.UserTokens{},
		&models.Friend{},
		&models.Message{},
		&models.Post{},
		&models.PostLike{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return CreateIndexes(database)
}

func Close() error {
	if ORM == nil {
		return nil
	}
	sqlDB, err := ORM.DB()
	if err != nil {
		return err
	}
	ORM = nil
	return sqlDB.Close()
}

// GetReadOnlyDB возвращает подключение для чтения (слейвы).
// Session отвязывает цепочки вызовов друг от друга: условия одного запроса
// не попадают в следующий, построенный от того же значения.
func GetReadOnlyDB(ctx context.Context) *gorm.DB {
	return ORM.WithContext(ctx).Clauses(dbresolver.Read).Session(&gorm.Session{})
}

// GetWriteDB возвращает подключение для записи (мастер)
func GetWriteDB(ctx context.Context) *gorm.DB {
	return ORM.WithContext(ctx).Clauses(dbresolver.Write).Session(&gorm.Session{})
}
