package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crewdeckhq/crewdeck/internal/app"
)

func TestConvertDatabaseConfigDefaultsToSQLite(t *testing.T) {
	cfg := &app.Config{}
	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, "sqlite", dbCfg.Driver)
}

func TestConvertDatabaseConfigPostgres(t *testing.T) {
	cfg := &app.Config{}
	cfg.Database.Driver = "PostgreSQL"
	cfg.Database.Postgres = app.DBAuthConfig{
		Host:     " db.internal ",
		Port:     5432,
		Database: "crewdeck",
		Username: "crewdeck",
		Password: "secret",
	}

	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, "db.internal", dbCfg.Host)
	require.Equal(t, 5432, dbCfg.Port)
	require.Equal(t, "crewdeck", dbCfg.Name)
}

func TestConvertDatabaseConfigMySQL(t *testing.T) {
	cfg := &app.Config{}
	cfg.Database.Driver = "mysql"
	cfg.Database.MySQL = app.DBAuthConfig{
		Host:     "mysql.internal",
		Port:     3306,
		Database: "crewdeck",
		Username: "crewdeck",
		Password: "secret",
	}

	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, "mysql", dbCfg.Driver)
	require.Equal(t, "mysql.internal", dbCfg.Host)
}

func TestLoadApplicationConfigRejectsMissingPath(t *testing.T) {
	_, err := loadApplicationConfig("/definitely/not/a/real/path")
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}
