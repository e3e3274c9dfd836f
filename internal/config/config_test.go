package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
address = "0.0.0.0"
port = 8080

[database]
url = "postgres://localhost/ponziland"

[torii]
torii_url = "http://localhost:8080"
world_address = "0x1"

[avnu]
api_url = "https://starknet.impulse.avnu.fi"

[ekubo]
api_url = "https://ekubo"
chain_id = "SN_MAIN"

[starknet]
rpc_url = "http://localhost:5050"

[[token]]
address = "0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7"
symbol = "ETH"
decimals = 18

[default]
token = "0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "postgres://localhost/ponziland", cfg.Database.URL)
	assert.Len(t, cfg.Tokens, 1)
	assert.Equal(t, "ETH", cfg.Tokens[0].Symbol)
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
