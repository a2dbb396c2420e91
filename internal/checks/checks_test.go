package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
	"github.com/ThomasCrouzet/openzfs-stack/internal/stack"
)

func newTemplate(t *testing.T) (*stack.OpenZFSStack, *construct.Template) {
	t.Helper()
	st, err := stack.New(construct.NewApp(), stack.DefaultStackName, stack.Props{})
	require.NoError(t, err)
	tmpl, err := st.Template()
	require.NoError(t, err)
	return st, tmpl
}

func runCheck(t *testing.T, c RegisteredCheck, tmpl *construct.Template) []Finding {
	t.Helper()
	findings, err := c.Run(tmpl)
	require.NoError(t, err)
	return findings
}

func TestRegistry(t *testing.T) {
	var names []string
	for _, c := range All() {
		names = append(names, c.Metadata().Name)
	}
	assert.ElementsMatch(t, []string{"references", "subnets", "ingress", "placement"}, names)
}

func TestEnabled(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		want     bool
	}{
		{"no settings", nil, true},
		{"no section", map[string]any{"ingress": map[string]any{"enabled": false}}, true},
		{"disabled", map[string]any{"subnets": map[string]any{"enabled": false}}, false},
		{"enabled", map[string]any{"subnets": map[string]any{"enabled": true}}, true},
		{"malformed", map[string]any{"subnets": "off"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Enabled("subnets", tt.settings))
		})
	}
}

func TestRunAllCleanStack(t *testing.T) {
	_, tmpl := newTemplate(t)

	results, err := RunAll(tmpl, nil)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.False(t, r.Skipped, r.Name)
		assert.Empty(t, r.Findings, r.Name)
	}
}

func TestRunAllSkipsDisabled(t *testing.T) {
	st, tmpl := newTemplate(t)
	tmpl.Resources[st.Instance.Resource().LogicalID].Properties["SubnetId"] =
		map[string]any(st.Vpc.SelectSubnets("Isolated")[0].ID())

	settings := map[string]any{"placement": map[string]any{"enabled": false}}
	results, err := RunAll(tmpl, settings)
	require.NoError(t, err)

	skipped := 0
	for _, r := range results {
		if r.Skipped {
			skipped++
			assert.Equal(t, "Placement", r.Name)
		}
	}
	assert.Equal(t, 1, skipped)
}

func TestRunAllReportsErrors(t *testing.T) {
	_, tmpl := newTemplate(t)
	tmpl.Resources["Orphan"] = construct.TemplateResource{
		Type:      "AWS::SNS::Topic",
		DependsOn: []string{"Missing"},
	}

	results, err := RunAll(tmpl, nil)
	assert.ErrorIs(t, err, ErrFindings)

	total := 0
	for _, r := range results {
		for _, f := range r.Findings {
			assert.Equal(t, "references", f.Check)
			assert.Equal(t, "Orphan", f.Resource)
		}
		total += r.Errors()
	}
	assert.Equal(t, 1, total)
}

func TestReferencesCheck(t *testing.T) {
	st, tmpl := newTemplate(t)
	fs := tmpl.Resources[st.FileSystem.Resource().LogicalID]
	fs.Properties["SecurityGroupIds"] = []any{map[string]any{"Fn::GetAtt": []any{"GoneSg", "GroupId"}}}

	findings := runCheck(t, &ReferencesCheck{}, tmpl)
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityError, findings[0].Severity)
	assert.Equal(t, "FSxforOpenZFS", findings[0].Resource)
	assert.Contains(t, findings[0].Message, "GoneSg")
}

func TestSubnetsCheck(t *testing.T) {
	tests := []struct {
		name     string
		cidr     any
		severity Severity
		contains string
	}{
		{"overlap", "10.10.0.0/27", SeverityError, "overlap"},
		{"outside vpc", "10.20.0.0/28", SeverityError, "does not fully contain"},
		{"not a cidr", "ten", SeverityError, "not an IPv4 CIDR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, tmpl := newTemplate(t)
			id := st.Vpc.SelectSubnets("Isolated")[1].Resource().LogicalID
			tmpl.Resources[id].Properties["CidrBlock"] = tt.cidr

			findings := runCheck(t, &SubnetsCheck{}, tmpl)
			require.Len(t, findings, 1)
			assert.Equal(t, tt.severity, findings[0].Severity)
			assert.Contains(t, findings[0].Message, tt.contains)
		})
	}
}

func TestIngressCheck(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(rule map[string]any)
		want   string
	}{
		{"open to the world", func(r map[string]any) { r["CidrIp"] = "0.0.0.0/0" }, "outside the VPC block"},
		{"literal inside vpc", func(r map[string]any) { r["CidrIp"] = "10.10.0.32/28" }, ""},
		{"other attribute", func(r map[string]any) {
			r["CidrIp"] = map[string]any{"Fn::GetAtt": []any{"Elsewhere", "CidrBlock"}}
		}, "is not the CIDR block"},
		{"reversed ports", func(r map[string]any) { r["FromPort"] = 2050.0 }, "reversed"},
		{"port out of range", func(r map[string]any) { r["ToPort"] = 70000.0 }, "out of bounds"},
		{"missing ports", func(r map[string]any) { delete(r, "FromPort") }, "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, tmpl := newTemplate(t)
			rules := tmpl.Resources[st.SecurityGroup.Resource().LogicalID].Properties["SecurityGroupIngress"].([]any)
			tt.mutate(rules[1].(map[string]any))

			findings := runCheck(t, &IngressCheck{}, tmpl)
			if tt.want == "" {
				assert.Empty(t, findings)
				return
			}
			require.Len(t, findings, 1)
			assert.Contains(t, findings[0].Message, "ingress rule 1 (NFS server daemon)")
			assert.Contains(t, findings[0].Message, tt.want)
		})
	}
}

func TestPlacementCheck(t *testing.T) {
	t.Run("swapped subnets", func(t *testing.T) {
		st, tmpl := newTemplate(t)
		public := st.Vpc.SelectSubnets("Public")[0].ID()
		isolated := st.Vpc.SelectSubnets("Isolated")[0].ID()
		tmpl.Resources[st.Instance.Resource().LogicalID].Properties["SubnetId"] = map[string]any(isolated)
		tmpl.Resources[st.FileSystem.Resource().LogicalID].Properties["SubnetIds"] = []any{map[string]any(public)}

		findings := runCheck(t, &PlacementCheck{}, tmpl)
		require.Len(t, findings, 2)
		assert.Contains(t, findings[0].Message, "no route to an internet gateway")
		assert.Contains(t, findings[1].Message, "public subnet")
	})

	t.Run("no subnets", func(t *testing.T) {
		st, tmpl := newTemplate(t)
		delete(tmpl.Resources[st.FileSystem.Resource().LogicalID].Properties, "SubnetIds")

		findings := runCheck(t, &PlacementCheck{}, tmpl)
		require.Len(t, findings, 1)
		assert.Equal(t, "file system declares no subnets", findings[0].Message)
	})
}
