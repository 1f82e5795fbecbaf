package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phospodka/reindexer/internal/props"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.Len(t, cfg.Types, 1)
	assert.Equal(t, IndexType{Name: "logs", SourcePrefix: "logstash-", DestPrefix: "logstash-"}, cfg.Types[0])
	assert.Equal(t, 10, cfg.Reindex.SettleDelay)
	assert.False(t, cfg.Reindex.Snapshot)
	assert.Equal(t, "check_index", cfg.Templates.CheckIndex)
	assert.Equal(t, "count_index", cfg.Templates.CountIndex)
	assert.Equal(t, "reindex.conf", cfg.Templates.Transfer)
	assert.Equal(t, "create_snapshot", cfg.Templates.Snapshot)
	assert.Equal(t, "logstash", cfg.Transfer.Executable)
	assert.Equal(t, "logstash_home", cfg.Transfer.HomeProperty)
}

func TestLoadBytes(t *testing.T) {
	os.Setenv("TEST_REINDEX_HOOK", "https://hooks.example.com/abc")
	defer os.Unsetenv("TEST_REINDEX_HOOK")

	cfg, err := LoadBytes([]byte(`
types:
  - name: logs
    source_prefix: logstash-
    dest_prefix: archive-logs-
  - name: metrics
    source_prefix: metricbeat-
reindex:
  settle_delay: 30
  snapshot: true
slack:
  enabled: true
  webhook_url: ${TEST_REINDEX_HOOK}
`))
	require.NoError(t, err)

	require.Len(t, cfg.Types, 2)
	assert.Equal(t, "archive-logs-2024.03.01", cfg.Types[0].DestIndex("2024.03.01"))
	assert.Equal(t, "metricbeat-2024.03.01", cfg.Types[1].DestIndex("2024.03.01"), "dest prefix defaults to source prefix")
	assert.Equal(t, 30, cfg.Reindex.SettleDelay)
	assert.True(t, cfg.Reindex.Snapshot)
	assert.Equal(t, "https://hooks.example.com/abc", cfg.Slack.WebhookURL)
	assert.Equal(t, "[REDACTED]", cfg.Sanitized().Slack.WebhookURL)
	assert.Equal(t, "https://hooks.example.com/abc", cfg.Slack.WebhookURL, "Sanitized must not modify the original")
}

func TestLoadBytesSettleDelay(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want int
	}{
		{"absent", "reindex:\n  snapshot: true\n", DefaultSettleDelay},
		{"no reindex section", "types:\n  - {name: logs, source_prefix: a-}\n", DefaultSettleDelay},
		{"explicit zero", "reindex:\n  settle_delay: 0\n", 0},
		{"explicit value", "reindex:\n  settle_delay: 3\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadBytes([]byte(tt.yaml))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Reindex.SettleDelay)
		})
	}
}

func TestLoadBytesValidation(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		errorMsg string
	}{
		{"missing name", "types:\n  - source_prefix: a-\n", "types[0].name is required"},
		{"missing prefix", "types:\n  - name: logs\n", "types[0].source_prefix is required"},
		{"duplicate", "types:\n  - {name: logs, source_prefix: a-}\n  - {name: logs, source_prefix: b-}\n", "duplicate type"},
		{"negative delay", "reindex:\n  settle_delay: -1\n", "settle_delay must not be negative"},
		{"slack without url", "slack:\n  enabled: true\n", "slack.webhook_url is required"},
		{"bad yaml", "types: [\n", "parsing config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestReadProperties(t *testing.T) {
	input := `
# store hosts
replacement.def.source_host=es-old:9200
replacement.def.dest_host = "es-new:9200"
replacement.def.query=size=0&q=*

replacement.core.date=day
other.key=ignored
`
	raw, err := ReadProperties(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "es-old:9200", raw["replacement.def.source_host"])
	assert.Equal(t, "es-new:9200", raw["replacement.def.dest_host"], "quotes stripped")
	assert.Equal(t, "size=0&q=*", raw["replacement.def.query"], "= inside values kept")
	assert.Len(t, raw, 5)

	values, keys := SplitProperties(raw)
	assert.Equal(t, map[string]string{
		"source_host": "es-old:9200",
		"dest_host":   "es-new:9200",
		"query":       "size=0&q=*",
	}, values)
	assert.Equal(t, props.KeyMap{"date": "day"}, keys)
}

func TestReadPropertiesMissingKey(t *testing.T) {
	_, err := ReadProperties(strings.NewReader("=value\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1 has no key")
}

func TestLoadPropertySet(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "conf"), 0700))
	require.NoError(t, os.WriteFile(PropertiesPath(home), []byte(
		"replacement.def.source_host=es-old:9200\nreplacement.def.dest_host=es-new:9200\n"), 0600))

	p, err := LoadPropertySet(home)
	require.NoError(t, err)

	host, ok := p.Get("source_host")
	assert.True(t, ok)
	assert.Equal(t, "es-old:9200", host)

	path, ok := p.Get(props.Path)
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(home, "templates")+string(filepath.Separator), path)
}

func TestLoadPropertySetMissingFile(t *testing.T) {
	_, err := LoadPropertySet(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, "", expandTilde(""))
	assert.Equal(t, home, expandTilde("~"))
	assert.Equal(t, filepath.Join(home, ".reindexer"), expandTilde("~/.reindexer"))
	assert.Equal(t, "/var/lib/reindexer", expandTilde("/var/lib/reindexer"))
}
