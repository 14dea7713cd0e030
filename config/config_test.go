package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	formflow "github.com/reoring/formflow"
	"github.com/reoring/formflow/config"
	"github.com/reoring/formflow/form"
)

func write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default().Form, cfg.Form)
	assert.Equal(t, config.Default().Logging, cfg.Logging)
	assert.Equal(t, "uploads", cfg.Upload.Dir)

	c, err := cfg.Constraints()
	require.NoError(t, err)
	assert.EqualValues(t, 10_000_000, c.MaxSize)
	assert.Equal(t, 5, c.MaxFiles)
	assert.True(t, c.Multiple)

	mode, re, err := cfg.Modes()
	require.NoError(t, err)
	assert.Equal(t, form.OnSubmit, mode)
	assert.Equal(t, form.OnChange, re)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := write(t, "formflow.yaml", `
form:
  mode: onBlur
upload:
  max_size: 512KiB
  accept: ["image/*", ".pdf"]
  multiple: false
i18n:
  lang: ja
`)
	t.Setenv("FORMFLOW_UPLOAD_MAX_FILES", "1")
	t.Setenv("FORMFLOW_LOGGING_LEVEL", "debug")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "onBlur", cfg.Form.Mode)
	assert.Equal(t, 1, cfg.Upload.MaxFiles)
	assert.Equal(t, "debug", cfg.Logging.Level)

	c, err := cfg.Constraints()
	require.NoError(t, err)
	assert.EqualValues(t, 512*1024, c.MaxSize)
	assert.Equal(t, []string{"image/*", ".pdf"}, c.Accept)
	assert.False(t, c.Multiple)

	msgs, err := cfg.Messages()
	require.NoError(t, err)
	assert.Equal(t, "必須項目です", msgs.Message(formflow.CodeRequired, nil))
}

func TestLoad_InvalidValuesAreReportedPerSetting(t *testing.T) {
	path := write(t, "bad.yaml", `
form:
  mode: onHover
upload:
  max_size: ten
  concurrency: 0
logging:
  level: loud
`)
	_, err := config.Load(path)
	require.Error(t, err)
	iss, ok := formflow.AsIssues(err)
	require.True(t, ok, "validation errors are Issues: %v", err)
	byField := iss.ByField()
	assert.Contains(t, byField, "form.mode")
	assert.Contains(t, byField, "upload.max_size")
	assert.Contains(t, byField, "upload.concurrency")
	assert.Contains(t, byField, "logging.level")
}

func TestMessages_CatalogOverride(t *testing.T) {
	catalog := write(t, "messages.yaml", "en:\n  too_short: \"type {min}+ characters\"\n")
	cfg := config.Default()
	cfg.I18n.Catalog = catalog

	msgs, err := cfg.Messages()
	require.NoError(t, err)
	assert.Equal(t, "type 3+ characters", msgs.Message(formflow.CodeTooShort, map[string]any{"min": 3}))
	assert.Equal(t, "required", msgs.Message(formflow.CodeRequired, nil))

	cfg.I18n.Catalog = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cfg.Messages()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "i18n.catalog"))
}
