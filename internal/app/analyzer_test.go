package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logLine(ip string, at time.Time, method, path string, status int) string {
	return fmt.Sprintf(`%s - - [%s] "%s %s HTTP/1.1" %d 512 "-" "curl/8.0"`,
		ip, at.Format("02/Jan/2006:15:04:05 -0700"), method, path, status)
}

func testConfig(t *testing.T, logPath string) Config {
	t.Helper()
	return Config{
		LogPath:     logPath,
		Threshold:   10,
		TimeWindow:  time.Hour,
		OutputBase:  filepath.Join(t.TempDir(), "report"),
		MinInterval: time.Second,
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestAnalyzerBatchFlagsBruteForce(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	var lines []string
	for i := 0; i < 12; i++ {
		lines = append(lines, logLine("203.0.113.5", base.Add(time.Duration(i)*20*time.Second), "POST", "/login", 401))
	}
	lines = append(lines, logLine("198.51.100.9", base, "GET", "/index.html", 200))

	logPath := filepath.Join(t.TempDir(), "access.log")
	require.NoError(t, os.WriteFile(logPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	cfg := testConfig(t, logPath)
	analyzer, err := New(cfg, new(strings.Builder))
	require.NoError(t, err)

	require.NoError(t, analyzer.RunBatch(context.Background()))

	rows := readCSV(t, cfg.OutputBase+".csv")
	require.Len(t, rows, 2) // header plus the one flagged IP

	row := rows[1]
	assert.Equal(t, "203.0.113.5", row[0])
	assert.Equal(t, "15", row[1]) // threat score
	assert.Equal(t, "12", row[2]) // total requests
	assert.Equal(t, "15", row[5]) // BRUTE_FORCE column

	// The HTML report is written alongside.
	_, err = os.Stat(cfg.OutputBase + ".html")
	assert.NoError(t, err)
}

func TestAnalyzerBatchDeterministic(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	var lines []string
	for i := 0; i < 12; i++ {
		lines = append(lines, logLine("203.0.113.5", base.Add(time.Duration(i)*time.Second), "POST", "/login", 401))
	}
	for i := 0; i < 60; i++ {
		lines = append(lines, logLine("198.51.100.9", base.Add(time.Duration(i)*time.Second), "GET", fmt.Sprintf("/p/%d", i%30), 404))
	}

	logPath := filepath.Join(t.TempDir(), "access.log")
	require.NoError(t, os.WriteFile(logPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	run := func() [][]string {
		cfg := testConfig(t, logPath)
		analyzer, err := New(cfg, new(strings.Builder))
		require.NoError(t, err)
		require.NoError(t, analyzer.RunBatch(context.Background()))
		return readCSV(t, cfg.OutputBase+".csv")
	}

	first := run()
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, run())
	}
}

func TestAnalyzerWhitelistExcludes(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	var lines []string
	for i := 0; i < 12; i++ {
		lines = append(lines, logLine("203.0.113.5", base.Add(time.Duration(i)*time.Second), "POST", "/login", 401))
	}

	dir := t.TempDir()
	logPath := filepath.Join(dir, "access.log")
	require.NoError(t, os.WriteFile(logPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	whitelist := filepath.Join(dir, "whitelist.txt")
	require.NoError(t, os.WriteFile(whitelist, []byte("203.0.113.0/24\n"), 0o644))

	cfg := testConfig(t, logPath)
	cfg.WhitelistPath = whitelist

	analyzer, err := New(cfg, new(strings.Builder))
	require.NoError(t, err)
	require.NoError(t, analyzer.RunBatch(context.Background()))

	rows := readCSV(t, cfg.OutputBase+".csv")
	assert.Len(t, rows, 1) // header only, the attacker was whitelisted
}

func TestAnalyzerIgnoreInternal(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	var lines []string
	for i := 0; i < 12; i++ {
		lines = append(lines, logLine("192.168.1.50", base.Add(time.Duration(i)*time.Second), "POST", "/login", 401))
	}

	logPath := filepath.Join(t.TempDir(), "access.log")
	require.NoError(t, os.WriteFile(logPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	cfg := testConfig(t, logPath)
	cfg.IgnoreInternal = true

	analyzer, err := New(cfg, new(strings.Builder))
	require.NoError(t, err)
	require.NoError(t, analyzer.RunBatch(context.Background()))

	rows := readCSV(t, cfg.OutputBase+".csv")
	assert.Len(t, rows, 1)
}

func TestAnalyzerMissingWhitelistIsConfigError(t *testing.T) {
	cfg := testConfig(t, "access.log")
	cfg.WhitelistPath = filepath.Join(t.TempDir(), "absent.txt")

	_, err := New(cfg, new(strings.Builder))
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "filter.whitelist", cerr.Field)
}

func TestAnalyzerNoWhitelistSkipsLoading(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "access.log")
	require.NoError(t, os.WriteFile(logPath, []byte(logLine("203.0.113.5", time.Now(), "GET", "/", 200)+"\n"), 0o644))

	cfg := testConfig(t, logPath)
	cfg.WhitelistPath = filepath.Join(t.TempDir(), "absent.txt")
	cfg.NoWhitelist = true

	_, err := New(cfg, new(strings.Builder))
	assert.NoError(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		LogPath:    "access.log",
		Threshold:  10,
		TimeWindow: time.Hour,
		OutputBase: "report",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing log path", func(c *Config) { c.LogPath = "" }, "log.path"},
		{"zero threshold", func(c *Config) { c.Threshold = 0 }, "detection.threshold"},
		{"zero window", func(c *Config) { c.TimeWindow = 0 }, "detection.window_hours"},
		{"negative interval", func(c *Config) { c.MinInterval = -time.Second }, "watch.min_interval"},
		{"missing output", func(c *Config) { c.OutputBase = "" }, "output.base"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestAnalyzerWatchPicksUpAppends(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	logPath := filepath.Join(dir, "access.log")

	var backlog []string
	for i := 0; i < 12; i++ {
		backlog = append(backlog, logLine("203.0.113.5", base.Add(time.Duration(i)*time.Second), "POST", "/login", 401))
	}
	require.NoError(t, os.WriteFile(logPath, []byte(strings.Join(backlog, "\n")+"\n"), 0o644))

	cfg := testConfig(t, logPath)
	cfg.MinInterval = 20 * time.Millisecond

	var console strings.Builder
	analyzer, err := New(cfg, &console)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- analyzer.RunWatch(ctx) }()

	// The backlog scan flags the brute-forcer; wait for the report file.
	require.Eventually(t, func() bool {
		rows := readCSVIfExists(t, cfg.OutputBase+".csv")
		return len(rows) == 2 && rows[1][0] == "203.0.113.5"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Contains(t, console.String(), "203.0.113.5")
}

func readCSVIfExists(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil
	}
	return rows
}
