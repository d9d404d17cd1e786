package mainconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/leadcapture/internal/config"
	"github.com/wolfman30/leadcapture/internal/database"
)

func TestMigrationTarget(t *testing.T) {
	tests := []struct {
		name       string
		cfg        appconfig.Config
		wantDriver string
		wantDSN    string
		wantOK     bool
		wantErr    bool
	}{
		{name: "memory", cfg: appconfig.Config{LeadStore: appconfig.StoreMemory}},
		{name: "postgres", cfg: appconfig.Config{LeadStore: appconfig.StorePostgres, DatabaseURL: " postgres://db/leads "}, wantDriver: database.DriverPostgres, wantDSN: "postgres://db/leads", wantOK: true},
		{name: "postgres without url", cfg: appconfig.Config{LeadStore: appconfig.StorePostgres}, wantErr: true},
		{name: "sqlite", cfg: appconfig.Config{LeadStore: appconfig.StoreSQLite, SQLitePath: "leads.db"}, wantDriver: database.DriverSQLite, wantDSN: "leads.db", wantOK: true},
		{name: "unknown", cfg: appconfig.Config{LeadStore: "mongo"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, dsn, ok, err := MigrationTarget(&tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantDSN, dsn)
		})
	}
}

func TestRedisOptions(t *testing.T) {
	opts := RedisOptions(&appconfig.Config{RedisAddr: "cache:6379", RedisPassword: "secret"})
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Nil(t, opts.TLSConfig)

	opts = RedisOptions(&appconfig.Config{RedisAddr: "cache:6380", RedisTLS: true})
	require.NotNil(t, opts.TLSConfig)
}
