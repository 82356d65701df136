package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStoreURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    StoreConfig
		wantErr string
	}{
		{
			name: "memory",
			raw:  "memory://",
			want: StoreConfig{Kind: StoreMemory},
		},
		{
			name: "sqlite absolute path",
			raw:  "sqlite:///var/lib/nodegraph/nodes.db",
			want: StoreConfig{Kind: StoreSQLite, Path: "/var/lib/nodegraph/nodes.db"},
		},
		{
			name: "sqlite relative path",
			raw:  "sqlite://nodes.db",
			want: StoreConfig{Kind: StoreSQLite, Path: "nodes.db"},
		},
		{
			name: "dynamodb with local endpoint",
			raw:  "dynamodb://nodes?region=eu-west-1&endpoint=http://localhost:8000",
			want: StoreConfig{Kind: StoreDynamoDB, Table: "nodes", Region: "eu-west-1", Endpoint: "http://localhost:8000"},
		},
		{
			name:    "dynamodb without table",
			raw:     "dynamodb://",
			wantErr: "missing the table name",
		},
		{
			name:    "sqlite without path",
			raw:     "sqlite://",
			wantErr: "missing the database path",
		},
		{
			name:    "unknown scheme",
			raw:     "mongodb://localhost:27017/nodes",
			wantErr: "unsupported STORE_URL scheme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStoreURL(tt.raw)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORE_URL", "")
	t.Setenv("IMPORT_FILE", "")
	t.Setenv("IMPORT_STRICT", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("BREAKER_FAILURE_RATIO", "")
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, StoreMemory, cfg.Store.Kind)
	assert.Equal(t, "./sample.yaml", cfg.ImportFile)
	assert.True(t, cfg.ImportStrict)
	assert.False(t, cfg.ImportReset)
	assert.False(t, cfg.IsLambda)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 60*time.Second, cfg.BreakerTimeout)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("STORE_URL", "dynamodb://nodes")
	t.Setenv("AWS_REGION", "ap-south-1")
	t.Setenv("IMPORT_STRICT", "false")
	t.Setenv("IMPORT_RESET", "1")
	t.Setenv("CORS_ORIGINS", "http://a.example, ,http://b.example")
	t.Setenv("BREAKER_TIMEOUT_SECONDS", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StoreDynamoDB, cfg.Store.Kind)
	assert.Equal(t, "nodes", cfg.Store.Table)
	assert.Equal(t, "ap-south-1", cfg.Store.Region)
	assert.False(t, cfg.ImportStrict)
	assert.True(t, cfg.ImportReset)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 5*time.Second, cfg.BreakerTimeout)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Environment:         "production",
		Store:               StoreConfig{Kind: StoreMemory},
		BreakerFailureRatio: 0.5,
	}
	assert.ErrorContains(t, cfg.Validate(), "persistent store")

	cfg.Store.Kind = StoreSQLite
	assert.NoError(t, cfg.Validate())

	cfg.BreakerFailureRatio = 1.5
	assert.ErrorContains(t, cfg.Validate(), "BREAKER_FAILURE_RATIO")

	cfg.BreakerFailureRatio = 0.5
	cfg.ImportOnStart = true
	assert.ErrorContains(t, cfg.Validate(), "IMPORT_FILE")
}
