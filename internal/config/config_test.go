package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinfer/ldwriter"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ldwrite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func prefixPairs(p *Prefixes) []string {
	var out []string
	p.Range(func(prefix, iri string) bool {
		out = append(out, prefix, iri)
		return true
	})
	return out
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ldwriter.Compact, cfg.OutputVariant())
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Equal(t, FormatNQuads, cfg.Input.Format)
	assert.Zero(t, cfg.Prefixes.Len())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
variant: pretty
base: http://example.org/
log_level: debug
prefixes:
  foaf: http://xmlns.com/foaf/0.1/
  ex: http://example.org/
  dc: http://purl.org/dc/terms/
input:
  format: sqlite
  path: quads.db
`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ldwriter.Pretty, cfg.OutputVariant())
	assert.Equal(t, "http://example.org/", cfg.Base)
	assert.Equal(t, "  ", cfg.Indent, "unset keys keep their defaults")
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, InputConfig{Format: FormatSQLite, Path: "quads.db"}, cfg.Input)
	assert.Equal(t, []string{
		"foaf", "http://xmlns.com/foaf/0.1/",
		"ex", "http://example.org/",
		"dc", "http://purl.org/dc/terms/",
	}, prefixPairs(&cfg.Prefixes))
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	tests := map[string]string{
		"prefixes not a mapping": "prefixes: [foaf]\n",
		"nested namespace":       "prefixes:\n  foaf:\n    iri: x\n",
		"malformed yaml":         "variant: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"unknown variant", func(c *Config) { c.Variant = "flat" }, "variant"},
		{"non-whitespace indent", func(c *Config) { c.Indent = "--" }, "indent"},
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"unknown format", func(c *Config) { c.Input.Format = "turtle" }, "input.format"},
		{"sqlite without path", func(c *Config) { c.Input.Format = FormatSQLite }, "input.path"},
		{"postgres without path", func(c *Config) { c.Input.Format = FormatPostgres }, "input.path"},
		{"badger without path", func(c *Config) { c.Input.Format = FormatBadger }, "input.path"},
		{"prefix with colon", func(c *Config) { c.Prefixes.Set("a:b", "http://example.org/") }, "invalid prefix"},
		{"empty namespace", func(c *Config) { c.Prefixes.Set("ex", "") }, "empty namespace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	} {
		cfg := &Config{LogLevel: in}
		assert.Equal(t, want, cfg.Level(), "level %q", in)
	}
}

func TestSaveToFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Variant = "pretty"
	cfg.Prefixes.Set("z", "http://z.example/")
	cfg.Prefixes.Set("a", "http://a.example/")

	path := filepath.Join(t.TempDir(), "nested", "ldwrite.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pretty", loaded.Variant)
	assert.Equal(t, []string{"z", "http://z.example/", "a", "http://a.example/"}, prefixPairs(&loaded.Prefixes))
}
