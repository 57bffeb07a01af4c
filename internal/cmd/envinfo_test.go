package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sectionValues(sections []envSection) map[string]string {
	values := map[string]string{}
	for _, s := range sections {
		for _, l := range s.lines {
			values[s.title+"/"+l[0]] = l[1]
		}
	}
	return values
}

func TestConfigSectionsHideSecrets(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "libsql"
	cfg.Store.URL = "libsql://reports.turso.io?authToken=abc123"
	cfg.Server.AdminToken = "admin-secret"
	cfg.AILink = configuredAILink()

	sections := configSections(cfg, "/etc/aptoseidon/config.yaml")
	values := sectionValues(sections)

	assert.Equal(t, "/etc/aptoseidon/config.yaml", values["Configuration/Config File"])
	assert.Equal(t, "libsql://reports.turso.io", values["Configuration/Store URL"])
	assert.Equal(t, "(set)", values["Configuration/Admin Endpoint"])
	assert.Equal(t, "true", values["Agents/Enabled"])
	assert.Contains(t, values["Agents/Provider myai"], "keys=1")

	for _, v := range values {
		assert.NotContains(t, v, "abc123")
		assert.NotContains(t, v, "admin-secret")
		assert.NotContains(t, v, "sk-test")
	}

	var warned bool
	for _, s := range sections {
		if s.title == "Payment" {
			warned = len(s.warn) > 0
		}
	}
	assert.True(t, warned, "dev bypass should be flagged")
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "postgres://redacted@db:5432/aptoseidon", redactURL("postgres://user:pw@db:5432/aptoseidon?sslmode=disable"))
	require.Equal(t, "(unparseable)", redactURL("://bad"))
}

func TestRuntimeSections(t *testing.T) {
	values := sectionValues(runtimeSections())
	assert.NotEmpty(t, values["Runtime/Go Version"])
	assert.NotEmpty(t, values["Application/Name"])
}
