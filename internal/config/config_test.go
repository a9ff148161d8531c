package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
db:
  host: localhost
  user: ingest
  name: voyages
mail:
  mode: mbox
  mbox:
    path: /var/mail/ingest.mbox
types:
  - name: voyage_report
    sender: reports@carrier.example
    subject_pattern: 'Voyage Report V(?P<voyage>\d+)'
    table_template: voyage_{voyage}
    columns:
      - csv_name: Speed
        field: speed_kn
        type: float
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.DB.Port, "default port applied")
	assert.Equal(t, ModeMbox, cfg.Mail.Mode)
	require.Len(t, cfg.Types, 1)
	assert.NotNil(t, cfg.Types[0].SubjectRegexp(), "patterns compiled at load")
	assert.Empty(t, cfg.Warnings())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open")
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "db: ["))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")
}

func TestLoadIMAPDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
db:
  host: localhost
  user: ingest
  name: voyages
mail:
  imap:
    host: imap.example.com
    user: ingest@fleet.example
    use_tls: true
types: []
`))
	require.NoError(t, err)
	assert.Equal(t, ModeIMAP, cfg.Mail.Mode, "imap is the default mode")
	assert.Equal(t, 993, cfg.Mail.IMAP.Port)
	assert.Equal(t, "INBOX", cfg.Mail.IMAP.Mailbox)

	cfg, err = Load(writeConfig(t, `
db:
  host: localhost
  user: ingest
  name: voyages
mail:
  imap:
    host: imap.example.com
    user: ingest@fleet.example
types: []
`))
	require.NoError(t, err)
	assert.Equal(t, 143, cfg.Mail.IMAP.Port, "plaintext default port")
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			"missing db settings",
			`
db:
  host: localhost
mail:
  mode: mbox
  mbox:
    path: /var/mail/m.mbox
types: []
`,
			"db.host, db.user and db.name are required",
		},
		{
			"unknown mail mode",
			`
db:
  host: localhost
  user: ingest
  name: voyages
mail:
  mode: pigeon
types: []
`,
			"mail.mode must be",
		},
		{
			"mbox without path",
			`
db:
  host: localhost
  user: ingest
  name: voyages
mail:
  mode: mbox
types: []
`,
			"mail.mbox.path is required",
		},
		{
			"imap without host",
			`
db:
  host: localhost
  user: ingest
  name: voyages
mail:
  mode: imap
types: []
`,
			"mail.imap.host and mail.imap.user are required",
		},
		{
			"dedupe without addr",
			`
db:
  host: localhost
  user: ingest
  name: voyages
mail:
  mode: mbox
  mbox:
    path: /var/mail/m.mbox
dedupe:
  enabled: true
types: []
`,
			"dedupe.addr is required",
		},
		{
			"archive dir required",
			`
db:
  host: localhost
  user: ingest
  name: voyages
mail:
  mode: mbox
  mbox:
    path: /var/mail/m.mbox
types:
  - name: voyage_report
    sender: reports@carrier.example
    subject_pattern: 'Voyage Report V(?P<voyage>\d+)'
    table_template: voyage_{voyage}
    save_path_template: v_{voyage}.csv
    columns:
      - csv_name: Speed
        type: float
`,
			"archive_dir is required",
		},
		{
			"duplicate type name",
			`
db:
  host: localhost
  user: ingest
  name: voyages
mail:
  mode: mbox
  mbox:
    path: /var/mail/m.mbox
types:
  - name: voyage_report
    sender: reports@carrier.example
    subject_pattern: 'A(?P<v>\d+)'
    table_template: a_{v}
    columns:
      - csv_name: Speed
        type: float
  - name: voyage_report
    sender: other@carrier.example
    subject_pattern: 'B(?P<v>\d+)'
    table_template: b_{v}
    columns:
      - csv_name: Speed
        type: float
`,
			"duplicate type name",
		},
		{
			"invalid type aborts load",
			`
db:
  host: localhost
  user: ingest
  name: voyages
mail:
  mode: mbox
  mbox:
    path: /var/mail/m.mbox
types:
  - name: broken
    sender: reports@carrier.example
    subject_pattern: '('
    table_template: t
    columns:
      - csv_name: Speed
        type: float
`,
			"invalid subject_pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6432")
	t.Setenv("DB_PASSWORD", "hunter2")
	t.Setenv("IMAP_PASSWORD", "mailpass")
	t.Setenv("METRICS_ADDR", ":9091")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 6432, cfg.DB.Port)
	assert.Equal(t, "hunter2", cfg.DB.Password)
	assert.Equal(t, "mailpass", cfg.Mail.IMAP.Password)
	assert.Equal(t, ":9091", cfg.Metrics.Addr)
}

func TestLoadDedupeDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
db:
  host: localhost
  user: ingest
  name: voyages
mail:
  mode: mbox
  mbox:
    path: /var/mail/m.mbox
dedupe:
  enabled: true
  addr: localhost:6379
types: []
`))
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, cfg.Dedupe.TTL.Std())
}

func TestLoadWarnsOnEmptyTypes(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
db:
  host: localhost
  user: ingest
  name: voyages
mail:
  mode: mbox
  mbox:
    path: /var/mail/m.mbox
types: []
`))
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Warnings())
	assert.Contains(t, cfg.Warnings()[0], "no document types")
}

func TestDurationUnmarshal(t *testing.T) {
	var d Duration
	require.NoError(t, yaml.Unmarshal([]byte("720h"), &d))
	assert.Equal(t, 720*time.Hour, d.Std())

	err := yaml.Unmarshal([]byte("soon"), &d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}
