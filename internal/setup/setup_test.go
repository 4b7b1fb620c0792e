package setup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sod/spindex/internal/database"
	"github.com/go-sod/spindex/internal/index"
	"github.com/go-sod/spindex/internal/logging"
	"github.com/go-sod/spindex/internal/notify"
)

type testConfig struct {
	Addr     string `envconfig:"SPINDEX_TEST_ADDR" default:":1"`
	Log      logging.Config
	Index    index.Config
	Database database.Config
	Notify   notify.Config
}

func (c *testConfig) LoggingConfig() *logging.Config   { return &c.Log }
func (c *testConfig) IndexConfig() *index.Config       { return &c.Index }
func (c *testConfig) DatabaseConfig() *database.Config { return &c.Database }
func (c *testConfig) NotifyConfig() *notify.Config     { return &c.Notify }

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spindex.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
SPINDEX_TEST_FILE_ONLY = "from-file"
SPINDEX_TEST_OVERRIDDEN = "from-file"
spindex_test_lower = 7
SPINDEX_TEST_LIST = ["a", "b"]
SPINDEX_TEST_BOOL = true
`)
	t.Setenv("SPINDEX_TEST_OVERRIDDEN", "from-env")
	for _, key := range []string{"SPINDEX_TEST_FILE_ONLY", "SPINDEX_TEST_LOWER", "SPINDEX_TEST_LIST", "SPINDEX_TEST_BOOL"} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}

	if err := LoadFile(path); err != nil {
		t.Fatalf("calling LoadFile, err got: %v, expected: nil", err)
	}

	tests := []struct {
		key      string
		expected string
	}{
		{key: "SPINDEX_TEST_FILE_ONLY", expected: "from-file"},
		{key: "SPINDEX_TEST_OVERRIDDEN", expected: "from-env"},
		{key: "SPINDEX_TEST_LOWER", expected: "7"},
		{key: "SPINDEX_TEST_LIST", expected: "a,b"},
		{key: "SPINDEX_TEST_BOOL", expected: "true"},
	}
	for _, test := range tests {
		t.Run(test.key, func(t *testing.T) {
			if got := os.Getenv(test.key); got != test.expected {
				t.Errorf("env %s got: %q, expected: %q", test.key, got, test.expected)
			}
		})
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "syntax", body: `SPINDEX_TEST_BROKEN = `},
		{name: "table", body: "[SPINDEX_TEST_TABLE]\nkey = 1\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := LoadFile(writeFile(t, test.body)); err == nil {
				t.Errorf("calling LoadFile, err got: nil, expected an error")
			}
		})
	}
	if err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("calling LoadFile on a missing file, err got: nil, expected an error")
	}
}

func TestSetup(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "setup.db")
	t.Setenv(ConfigFileEnv, writeFile(t, `
SPINDEX_DB_FILE = "`+filepath.ToSlash(dbFile)+`"
SPINDEX_REBUILD_TIME = "50ms"
`))
	t.Setenv("SPINDEX_MAX_ITEMS_STORED", "42")
	t.Setenv("SPINDEX_DB_FILE", "")
	_ = os.Unsetenv("SPINDEX_DB_FILE")
	t.Setenv("SPINDEX_REBUILD_TIME", "")
	_ = os.Unsetenv("SPINDEX_REBUILD_TIME")

	var cfg testConfig
	ctx, env, err := Setup(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("calling Setup, err got: %v, expected: nil", err)
	}
	defer env.Close(ctx)

	if cfg.Database.FileName != filepath.ToSlash(dbFile) {
		t.Errorf("db file got: %v, expected: %v", cfg.Database.FileName, dbFile)
	}
	if cfg.Index.RebuildTime != 50*time.Millisecond {
		t.Errorf("rebuild time got: %v, expected: %v", cfg.Index.RebuildTime, 50*time.Millisecond)
	}
	if cfg.Index.MaxItemsStored != 42 {
		t.Errorf("max items stored got: %v, expected: %v", cfg.Index.MaxItemsStored, 42)
	}
	if cfg.Addr != ":1" {
		t.Errorf("default addr got: %v, expected: %v", cfg.Addr, ":1")
	}
	if env.Database() == nil {
		t.Fatalf("database must be configured")
	}

	notifier, err := env.ProvideNotifier()()
	if err != nil {
		t.Fatalf("providing the notifier: %v", err)
	}
	manager, err := env.ProvideIndex()(notifier, nil)
	if err != nil {
		t.Fatalf("providing the index: %v", err)
	}
	if layers := manager.Layers(); len(layers) != 0 {
		t.Errorf("layers of an empty db got: %v, expected none", layers)
	}
}
