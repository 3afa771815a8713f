package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "nucleus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MergesDefaultsUnderUserConfig(t *testing.T) {
	path := writeTempConfig(t, `
relational:
  host: db.internal
  database: coding
vector:
  host: qdrant.internal
graph:
  uri: bolt://neo4j.internal:7687
  user: neo4j
runner:
  top_k: 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Relational.Host)
	assert.Equal(t, 5432, cfg.Relational.Port, "unset port should fall back to default")
	assert.Equal(t, 8, cfg.Runner.TopK, "explicit value should override default")
	assert.Equal(t, 5, cfg.Runner.StepsPerInterview, "unset runner field should keep default")
	assert.Equal(t, 0.55, cfg.Runner.DiscoveryAnchorThreshold)
	assert.False(t, cfg.Features.AllowOrglessTasks)
}

func TestLoad_MissingRequiredFieldFails(t *testing.T) {
	path := writeTempConfig(t, `
vector:
  host: qdrant.internal
graph:
  uri: bolt://neo4j.internal:7687
`)

	_, err := Load(path)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "relational.host", verr.Field)
}

func TestLoad_MissingFileUsesBuiltinDefaultsAndStillValidates(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err) // relational.host still required, no file to source it from
}

func TestResolveModel_AliasAndPassthrough(t *testing.T) {
	cfg := &Config{LLM: DefaultLLM()}
	assert.Equal(t, "gpt-4o", cfg.ResolveModel("chat"))
	assert.Equal(t, "gpt-4o-mini", cfg.ResolveModel("mini"))
	assert.Equal(t, "some-custom-deployment", cfg.ResolveModel("some-custom-deployment"))
}
