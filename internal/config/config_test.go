// file: internal/config/config_test.go
// version: 2.0.0
// guid: e4854411-5eb2-47be-a5e5-deb89dd11bf6

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/media-acquirer/internal/database"
	"github.com/jdfalk/media-acquirer/internal/models"
)

// TestInitConfig tests configuration initialization with defaults
func TestInitConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	require.NoError(t, InitConfig())

	assert.Equal(t, "pebble", AppConfig.DatabaseType)
	assert.False(t, AppConfig.EnableSQLite)
	assert.Equal(t, "info", AppConfig.LogLevel)
	assert.Equal(t, "text", AppConfig.LogFormat)
	assert.Equal(t, 30*24*time.Hour, AppConfig.Blacklist.Window)
	assert.Equal(t, 3, AppConfig.Blacklist.MaxRetries)
	assert.Equal(t, ":8686", AppConfig.Server.Listen)
	assert.Equal(t, int64(1<<20), AppConfig.Server.MaxBodyBytes)
	assert.Empty(t, AppConfig.Backends)
}

func TestInitConfigRequiresServerPassword(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("server.username", "admin")

	assert.Error(t, InitConfig())

	viper.Set("server.password", "hunter2")
	require.NoError(t, InitConfig())
	assert.Equal(t, "admin", AppConfig.Server.Username)
}

func TestInitConfigNormalizesDatabaseType(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("database_type", "SQLite3")

	require.NoError(t, InitConfig())
	assert.Equal(t, "sqlite", AppConfig.DatabaseType)
}

func TestInitConfigReadsBackends(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.SetConfigType("yaml")
	require.NoError(t, viper.ReadConfig(strings.NewReader(`
blacklist:
  window: 72h
  max_retries: 5
backends:
  - name: seedbox
    kind: Deluge
    host: 10.0.0.2
    port: 8112
    password: deluge
    timeout: 5s
  - kind: transmission
    host: localhost
    port: 9091
`)))

	require.NoError(t, InitConfig())
	assert.Equal(t, 72*time.Hour, AppConfig.Blacklist.Window)
	assert.Equal(t, 5, AppConfig.Blacklist.MaxRetries)
	require.Len(t, AppConfig.Backends, 2)

	seedbox, ok := AppConfig.Backend("seedbox")
	require.True(t, ok)
	assert.Equal(t, "deluge", seedbox.Kind)
	assert.Equal(t, 5*time.Second, seedbox.Timeout)

	tr, ok := AppConfig.Backend("transmission")
	require.True(t, ok, "name defaults to kind")
	assert.Equal(t, DefaultBackendTimeout, tr.Timeout)
}

func TestInitConfigRejectsBadBackends(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing host", "backends:\n  - kind: transmission\n    port: 9091\n"},
		{"duplicate names", "backends:\n  - kind: transmission\n    host: a\n    port: 1\n  - kind: transmission\n    host: b\n    port: 2\n"},
		{"bad retries", "blacklist:\n  max_retries: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			viper.SetConfigType("yaml")
			require.NoError(t, viper.ReadConfig(strings.NewReader(tt.yaml)))
			assert.Error(t, InitConfig())
		})
	}
}

func TestBackendValidate(t *testing.T) {
	valid := BackendConfig{Name: "t", Kind: "transmission", Host: "localhost", Port: 9091}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*BackendConfig)
	}{
		{"no kind", func(b *BackendConfig) { b.Kind = "" }},
		{"no host", func(b *BackendConfig) { b.Host = "" }},
		{"scheme in host", func(b *BackendConfig) { b.Host = "http://localhost" }},
		{"port zero", func(b *BackendConfig) { b.Port = 0 }},
		{"port too big", func(b *BackendConfig) { b.Port = 70000 }},
		{"deluge without password", func(b *BackendConfig) { b.Kind = "deluge" }},
		{"sabnzbd without key", func(b *BackendConfig) { b.Kind = "sabnzbd" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid
			tt.mutate(&b)
			err := b.Validate()
			assert.ErrorIs(t, err, ErrInvalidBackend)
		})
	}
}

func TestBackendURLs(t *testing.T) {
	b := BackendConfig{Host: "::1", Port: 8080, URLBase: "/sabnzbd/", UseTLS: true}
	assert.Equal(t, "[::1]:8080", b.HostPort())
	assert.Equal(t, "https://[::1]:8080/sabnzbd", b.BaseURL())

	b = BackendConfig{Host: "nas", Port: 9091}
	assert.Equal(t, "http://nas:9091", b.BaseURL())
}

const seedYAML = `
custom_formats:
  - name: x265
    specifications:
      - implementation: codec
        value: x265
        required: true
  - name: No CAM
    specifications:
      - implementation: contains
        value: "\\bcam\\b"
profiles:
  - name: HD Movies
    media_type: movie
    upgrade_allowed: true
    cutoff: 14
    items:
      - name: bluray-1080p
        allowed: true
      - name: WEBDL-1080p
        allowed: true
      - name: CAM
        allowed: false
    formats:
      x265: 50
      No CAM: -1000
`

func TestParseSeedResolvesQualityIDs(t *testing.T) {
	seed, err := ParseSeed([]byte(seedYAML))
	require.NoError(t, err)
	require.Len(t, seed.Profiles, 1)

	p := seed.Profiles[0]
	assert.Equal(t, models.MediaMovie, p.MediaType)
	require.Len(t, p.Items, 3)
	assert.Equal(t, 14, p.Items[0].ID)
	assert.Equal(t, "Bluray-1080p", p.Items[0].Name)
	assert.Equal(t, 12, p.Items[1].ID)
	assert.Equal(t, 1, p.Items[2].ID)
	assert.Equal(t, 50, p.Formats["x265"])
}

func TestParseSeedErrors(t *testing.T) {
	tests := map[string]string{
		"unknown media":   "profiles:\n  - name: p\n    media_type: comic\n",
		"unknown quality": "profiles:\n  - name: p\n    media_type: music\n    items:\n      - name: Bluray-1080p\n",
		"bad cutoff":      "profiles:\n  - name: p\n    media_type: music\n    cutoff: 3\n    items:\n      - name: FLAC\n",
		"unknown format":  "profiles:\n  - name: p\n    media_type: music\n    formats:\n      nope: 5\n",
		"bad yaml":        "profiles: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSeed([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestImportSeedIsRepeatable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))

	store, err := database.NewPebbleStore(filepath.Join(dir, "db"))
	require.NoError(t, err)
	defer store.Close()

	seed, err := LoadSeedFile(path)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		result, err := ImportSeed(store, seed)
		require.NoError(t, err)
		assert.Equal(t, SeedResult{Profiles: 1, Formats: 2, Scores: 2}, result)
	}

	profiles, err := store.ListProfiles()
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	formats, err := store.ListCustomFormats()
	require.NoError(t, err)
	assert.Len(t, formats, 2)

	scored, err := store.GetProfileFormats(profiles[0].ID)
	require.NoError(t, err)
	scores := map[string]int{}
	for _, sf := range scored {
		scores[sf.Format.Name] = sf.Score
	}
	assert.Equal(t, map[string]int{"x265": 50, "No CAM": -1000}, scores)
}
