package config

import (
	"github.com/spf13/viper"
)

// DBType names one of the two storage backends the server can run on.
type DBType string

const (
	DBTypeSQLite   DBType = "sqlite"
	DBTypePostgres DBType = "postgres"
)

type (
	Config struct {
		HTTP
		Database
		Postgres
	}

	HTTP struct {
		Port int
	}

	Database struct {
		Type DBType
		Path string // sqlite file path
	}

	Postgres struct {
		Host     string
		Port     int
		Name     string
		User     string
		Password string
	}
)

// New reads configuration from the environment. Backend selection:
// an explicit DB_TYPE wins, otherwise APP_ENV=production means postgres
// and anything else means sqlite.
func New() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 3000)
	v.SetDefault("app_env", "development")
	v.SetDefault("db_type", "")
	v.SetDefault("db_path", "./database.db")
	v.SetDefault("postgres_host", "postgres")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_db", "radiowave")
	v.SetDefault("postgres_user", "radiowave")
	v.SetDefault("postgres_password", "")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt("PORT"),
		},
		Database: Database{
			Type: selectDBType(v.GetString("DB_TYPE"), v.GetString("APP_ENV")),
			Path: v.GetString("DB_PATH"),
		},
		Postgres: Postgres{
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetInt("POSTGRES_PORT"),
			Name:     v.GetString("POSTGRES_DB"),
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
		},
	}
}

func selectDBType(override, env string) DBType {
	switch override {
	case string(DBTypeSQLite):
		return DBTypeSQLite
	case string(DBTypePostgres):
		return DBTypePostgres
	}
	if env == "production" {
		return DBTypePostgres
	}
	return DBTypeSQLite
}
