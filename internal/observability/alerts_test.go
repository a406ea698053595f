package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertFile struct {
	Groups []struct {
		Name  string      `yaml:"name"`
		Rules []alertRule `yaml:"rules"`
	} `yaml:"groups"`
}

type expectedRule struct {
	severity string
	anchor   string
	metric   string
}

func loadAlertRules(t *testing.T) map[string][]alertRule {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "dashboard.yml"))
	require.NoError(t, err)
	var file alertFile
	require.NoError(t, yaml.Unmarshal(data, &file))
	groups := make(map[string][]alertRule, len(file.Groups))
	for _, g := range file.Groups {
		groups[g.Name] = g.Rules
	}
	return groups
}

func TestAlertRules(t *testing.T) {
	groups := loadAlertRules(t)
	expected := map[string]map[string]expectedRule{
		"dashboard": {
			"HighErrorRate":           {"critical", "high-error-rate", "eventdesk_http_requests_total"},
			"HighLatency":             {"warning", "high-latency", "eventdesk_http_request_duration_seconds_bucket"},
			"ConfirmedActionFailures": {"warning", "confirmed-action-failures", "eventdesk_operations_total"},
		},
		"workers": {
			"JobFailures":   {"warning", "job-failures", "eventdesk_jobs_failures_total"},
			"WorkspaceLeak": {"warning", "workspace-leak", "eventdesk_workspaces"},
		},
	}

	for name, rules := range expected {
		t.Run(name, func(t *testing.T) {
			got, ok := groups[name]
			require.True(t, ok, "group %s missing", name)
			require.Len(t, got, len(rules))
			for _, rule := range got {
				want, ok := rules[rule.Alert]
				require.True(t, ok, "unexpected rule %q", rule.Alert)
				assert.Equal(t, want.severity, rule.Labels["severity"], rule.Alert)
				assert.Equal(t, "docs/runbook-dashboard.md#"+want.anchor, rule.Annotations["runbook"], rule.Alert)
				assert.NotEmpty(t, rule.Annotations["summary"], rule.Alert)
				assert.NotEmpty(t, rule.Annotations["description"], rule.Alert)
				assert.NotEmpty(t, rule.For, rule.Alert)
				assert.True(t, strings.Contains(rule.Expr, want.metric), "%s should query %s", rule.Alert, want.metric)
			}
		})
	}
}
