package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		value := 10
		if strings.Contains(r.URL.Path, "/norway/") {
			value = 20
		}
		fmt.Fprintf(w, `[{"Country":"x","Category":"GDP","DateTime":"2022-12-31T00:00:00","Value":%d,"Frequency":"Yearly"},
			{"Country":"x","Category":"GDP","DateTime":"2023-12-31T00:00:00","Value":%d,"Frequency":"Yearly"}]`, value, value+1)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := fmt.Sprintf(`name: cli-test
storage:
  db_type: none
upstream:
  base_url: %s
aggregator:
  inter_call_delay_ms: 1
  indicators: [GDP, Population]
`, baseURL)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	chartPath = ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLatestCommand(t *testing.T) {
	path := writeConfig(t, upstream(t).URL)

	out, err := run(t, CmdLatest, "Sweden", "--"+FlagConfig, path)
	require.NoError(t, err)

	var summary struct {
		Country string         `json:"country"`
		Values  map[string]any `json:"values"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "Sweden", summary.Country)
	assert.Equal(t, 11.0, summary.Values["GDP"])
}

func TestCompareCommand(t *testing.T) {
	path := writeConfig(t, upstream(t).URL)

	out, err := run(t, CmdCompare, "Sweden", "Norway", "gdp", "--"+FlagConfig, path)
	require.NoError(t, err)
	assert.Contains(t, out, `"date": "2023-12-31"`)
	assert.Contains(t, out, `"indicator": "GDP"`)

	chart := filepath.Join(t.TempDir(), "gdp.png")
	_, err = run(t, CmdCompare, "Sweden", "Norway", "GDP", "--"+FlagConfig, path, "--"+FlagChart, chart)
	require.NoError(t, err)
	data, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestCompareCommand_LatestValues(t *testing.T) {
	path := writeConfig(t, upstream(t).URL)

	out, err := run(t, CmdCompare, "Sweden", "Norway", "--"+FlagConfig, path)
	require.NoError(t, err)

	var comparison struct {
		Rows []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &comparison))
	require.Len(t, comparison.Rows, 2)
	assert.Equal(t, map[string]any{
		"indicator": "GDP", "country1": 11.0, "country2": 21.0, "difference": -10.0, "unit": "USD Billion",
	}, comparison.Rows[0])
	assert.Equal(t, "Million", comparison.Rows[1]["unit"])
}

func TestCommandErrors(t *testing.T) {
	path := writeConfig(t, upstream(t).URL)

	_, err := run(t, CmdCompare, "Sweden", "--"+FlagConfig, path)
	assert.Error(t, err)

	_, err = run(t, CmdCompare, "Sweden", "Norway", "--"+FlagConfig, path, "--"+FlagChart, filepath.Join(t.TempDir(), "x.png"))
	assert.ErrorContains(t, err, "needs an indicator")

	_, err = run(t, CmdLatest, "Sweden", "--"+FlagConfig, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "load config")
}
