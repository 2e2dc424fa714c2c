package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "oeffentlichevergabe", cfg.Source.Provider)
	assert.Equal(t, "https://oeffentlichevergabe.de/api/notice-exports", cfg.Source.BaseURL)
	assert.Equal(t, 3, cfg.Source.MaxRetries)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 256, cfg.Embedding.Dimensions)
	assert.Equal(t, 100, cfg.Embedding.BatchSize)
	assert.Equal(t, "vergabe-radar-v2", cfg.Index.Name)
	assert.Equal(t, 500, cfg.Index.UploadBatchSize)
	assert.Equal(t, 2000, cfg.Pipeline.DescriptionMaxRunes)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VERGABE_EMBEDDING_DIMENSIONS", "512")
	t.Setenv("VERGABE_INDEX_NAME", "vergabe-test")
	t.Setenv("VERGABE_STORE_DATABASE_URL", "postgres://localhost/vergabe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 512, cfg.Embedding.Dimensions)
	assert.Equal(t, "vergabe-test", cfg.Index.Name)
	assert.Equal(t, "postgres://localhost/vergabe", cfg.Store.DatabaseURL)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}))
}
