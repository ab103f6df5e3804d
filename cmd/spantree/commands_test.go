/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chainguard.dev/spanevals/internal/spanfile"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

const spansJSON = `{"spans": [
  {"spanId": "0000000000000001", "name": "agent.execution", "startTimeUnixNano": "1000", "endTimeUnixNano": "5000"},
  {"spanId": "0000000000000002", "parentSpanId": "0000000000000001", "name": "agent.tool_call", "startTimeUnixNano": "2000", "endTimeUnixNano": "3000",
   "attributes": [{"key": "tool.name", "value": {"stringValue": "search"}}, {"key": "attempt", "value": {"intValue": "1"}}]},
  {"spanId": "0000000000000003", "parentSpanId": "0000000000000001", "name": "agent.tool_call", "startTimeUnixNano": "3500",
   "attributes": [{"key": "tool.name", "value": {"stringValue": "read_file"}}]},
  {"spanId": "0000000000000004", "parentSpanId": "00000000000000ff", "name": "orphan"}
]}`

func writeSpans(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spans.json")
	require.NoError(t, os.WriteFile(path, []byte(spansJSON), 0o600))
	return path
}

func run(t *testing.T, cfg config, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(cfg)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRender(t *testing.T) {
	out, err := run(t, config{}, "", "render", writeSpans(t))
	require.NoError(t, err)

	want := `<SpanTree>
  <SpanNode name="orphan" />
  <SpanNode name="agent.execution" >
    <SpanNode name="agent.tool_call" />
    <SpanNode name="agent.tool_call" />
  </SpanNode>
</SpanTree>
`
	assert.Equal(t, want, out)
}

func TestRenderFlagsAndStdin(t *testing.T) {
	out, err := run(t, config{}, spansJSON, "render", "--shallow", "--durations", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `<SpanNode name="agent.execution" duration=4µs children=... />`)
	assert.Contains(t, out, `<SpanNode name="orphan" duration=none />`)
	assert.NotContains(t, out, "tool_call")
}

func TestConfigFromEnv(t *testing.T) {
	var cfg config
	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(map[string]string{"SPANTREE_INCLUDE_IDS": "true"}),
	})
	require.NoError(t, err)
	assert.True(t, cfg.IncludeIDs)

	out, err := run(t, cfg, "", "render", writeSpans(t))
	require.NoError(t, err)
	assert.Contains(t, out, "span_id=0000000000000002")

	// Flags override the environment.
	out, err = run(t, cfg, "", "render", "--ids=false", writeSpans(t))
	require.NoError(t, err)
	assert.NotContains(t, out, "span_id=")
}

func TestFind(t *testing.T) {
	path := writeSpans(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"by name", []string{"--name", "agent.tool_call"}, []string{"read_file", "search"}},
		{"by attr", []string{"--attr", "tool.name=search"}, []string{"search"}},
		{"typed attr", []string{"--attr", "attempt:int=1"}, []string{"search"}},
		{"type mismatch", []string{"--attr", "attempt=1"}, nil},
		{"first", []string{"--name", "agent.tool_call", "--first"}, []string{"read_file"}},
		{"no match", []string{"--name", "missing"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"find", path, "--json"}, tt.args...)
			out, err := run(t, config{}, "", args...)
			require.NoError(t, err)

			spans, err := spanfile.Read(strings.NewReader(out))
			require.NoError(t, err)
			var got []string
			for _, s := range spans {
				v, _ := s.Attribute("tool.name")
				got = append(got, v.AsString())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindRendersMatches(t *testing.T) {
	out, err := run(t, config{}, "", "find", writeSpans(t), "--name", "agent.execution")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, `<SpanNode name="agent.execution" >`))
	assert.Equal(t, 2, strings.Count(out, `<SpanNode name="agent.tool_call" />`))
}

func TestCommandErrors(t *testing.T) {
	path := writeSpans(t)
	for name, args := range map[string][]string{
		"missing file":   {"render", filepath.Join(t.TempDir(), "nope.json")},
		"bad json":       {"render", "-"},
		"bad attr":       {"find", path, "--attr", "novalue"},
		"bad attr type":  {"find", path, "--attr", "k:uuid=1"},
		"bad attr value": {"find", path, "--attr", "k:int=x"},
		"no args":        {"render"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, config{}, "{", args...)
			assert.Error(t, err)
		})
	}
}

func TestParseAttr(t *testing.T) {
	tests := map[string]attribute.KeyValue{
		"k=v":            attribute.String("k", "v"),
		"k=a=b":          attribute.String("k", "a=b"),
		"k:string=1":     attribute.String("k", "1"),
		"k:int=-3":       attribute.Int64("k", -3),
		"k:float=0.5":    attribute.Float64("k", 0.5),
		"k:bool=true":    attribute.Bool("k", true),
		"tool.name=grep": attribute.String("tool.name", "grep"),
	}
	for in, want := range tests {
		got, err := parseAttr(in)
		require.NoError(t, err, in)
		assert.Equal(t, want.Key, got.Key, in)
		assert.True(t, want.Value == got.Value, "%s: got = %v, wanted = %v", in, got.Value.Emit(), want.Value.Emit())
	}
}
