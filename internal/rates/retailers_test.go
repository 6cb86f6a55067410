package rates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetailers_DefaultsUsedWhenEnvEmpty(t *testing.T) {
	t.Setenv(retailersEnv, "")
	t.Setenv(retailersFileEnv, "")

	rs := RetailersFromEnv("/srv/data")
	require.Len(t, rs, 4)
	keys := []string{}
	for _, r := range rs {
		keys = append(keys, r.Key)
	}
	assert.Equal(t, []string{"origin", "nectr", "momentum", "nbe"}, keys)
	assert.Equal(t, filepath.Join("/srv/data", "origin.csv"), rs[0].Source)
	assert.Equal(t, "NBE", rs[3].Name)
}

func TestRetailers_OverrideFromEnv(t *testing.T) {
	t.Setenv(retailersEnv, `[
		{"key": "amber", "name": "Amber", "source": "https://rates.example.com/amber.json"}
	]`)

	rs := RetailersFromEnv("data")
	require.Len(t, rs, 1)
	assert.Equal(t, "amber", rs[0].Key)
	assert.Equal(t, "https://rates.example.com/amber.json", rs[0].Source)
}

func TestRetailers_InvalidJSONFallsBack(t *testing.T) {
	t.Setenv(retailersEnv, "{not valid json")
	assert.Len(t, RetailersFromEnv("data"), 4)

	t.Setenv(retailersEnv, `[{"key": "a", "source": "a.csv"}, {"key": "a", "source": "b.csv"}]`)
	assert.Len(t, RetailersFromEnv("data"), 4, "duplicate keys are rejected")
}

func TestRetailers_FromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "retailers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- key: origin
  name: Origin
  source: tables/origin.csv
- key: remote
  name: Remote
  source: https://rates.example.com/remote.csv
  skipTlsVerify: true
`), 0o644))
	t.Setenv(retailersEnv, "")
	t.Setenv(retailersFileEnv, path)

	rs := RetailersFromEnv("data")
	require.Len(t, rs, 2)
	assert.Equal(t, filepath.Join(dir, "tables", "origin.csv"), rs[0].Source)
	assert.Equal(t, "https://rates.example.com/remote.csv", rs[1].Source)
	assert.True(t, rs[1].SkipTLSVerify)
}

func TestRegistry_Get(t *testing.T) {
	reg := NewRegistry(DefaultRetailers("data"))

	d, err := reg.Get("nectr")
	require.NoError(t, err)
	assert.Equal(t, "Nectr", d.Name)

	_, err = reg.Get("agl")
	assert.ErrorIs(t, err, ErrUnknownRetailer)

	reg.Replace([]RetailerDescriptor{{Key: "agl", Name: "AGL", Source: "agl.csv"}})
	_, err = reg.Get("agl")
	assert.NoError(t, err)
	assert.Len(t, reg.Keys(), 1)
}
