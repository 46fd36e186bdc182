package envreader

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/gobuffalo/envy"
)

type testConfig struct {
	ClientID   string        `env:"TEST_SLACK_CLIENT_ID,required"`
	Secret     string        `env:"TEST_SLACK_CLIENT_SECRET,required"`
	Scopes     []string      `env:"TEST_SLACK_SCOPES" envSeparator:","`
	Expiration time.Duration `env:"TEST_SLACK_STATE_EXPIRATION" envDefault:"10m"`
}

func TestEnvReader_Parse(t *testing.T) {
	envy.Temp(func() {
		envy.Set("TEST_SLACK_SCOPES", "commands,chat:write")

		t.Run("missing keys", func(t *testing.T) {
			r := NewEnvReader()
			cfg := &testConfig{}
			if err := r.Parse(cfg); err == nil {
				t.Fatalf("Parse() error = nil, want error")
			}
			want := []string{"TEST_SLACK_CLIENT_ID", "TEST_SLACK_CLIENT_SECRET"}
			if !r.Errors || !reflect.DeepEqual(r.MissingKeys, want) {
				t.Errorf("MissingKeys = %v, want %v", spew.Sdump(r.MissingKeys), spew.Sdump(want))
			}
		})

		envy.Set("TEST_SLACK_CLIENT_ID", "test_client_id")
		envy.Set("TEST_SLACK_CLIENT_SECRET", "test_client_secret")

		t.Run("happy", func(t *testing.T) {
			r := NewEnvReader()
			got := &testConfig{}
			if err := r.Parse(got); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			want := &testConfig{
				ClientID:   "test_client_id",
				Secret:     "test_client_secret",
				Scopes:     []string{"commands", "chat:write"},
				Expiration: 10 * time.Minute,
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Parse() = %v, want %v", spew.Sdump(got), spew.Sdump(want))
			}
		})
	})
}

func TestEnvReader_GetEnv(t *testing.T) {
	r := NewEnvReader(WithEnvironment(map[string]string{
		"SLACK_CLIENT_ID": "id",
		"EMPTY":           "",
	}))
	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{name: "present", got: r.GetEnv("SLACK_CLIENT_ID"), want: "id"},
		{name: "optional absent", got: r.GetEnvOpt("NOPE"), want: ""},
		{name: "required empty", got: r.GetEnv("EMPTY"), want: ""},
		{name: "required absent", got: r.GetEnv("SLACK_CLIENT_SECRET"), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
	if want := []string{"EMPTY", "SLACK_CLIENT_SECRET"}; !reflect.DeepEqual(r.MissingKeys, want) {
		t.Errorf("MissingKeys = %v, want %v", r.MissingKeys, want)
	}
}

func TestWithSettingsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "local.settings.json")
	settings := `{
  "IsEncrypted": false,
  "Values": {
    "FUNCTIONS_WORKER_RUNTIME": "custom",
    "SLACK_CLIENT_ID": "from-file",
    "SLACK_SIGNING_SECRET": "file-secret"
  }
}`
	if err := os.WriteFile(path, []byte(settings), 0o600); err != nil {
		t.Fatal(err)
	}
	r := NewEnvReader(
		WithEnvironment(map[string]string{"SLACK_CLIENT_ID": "from-env"}),
		WithSettingsFile(path),
	)
	if err := r.SettingsError(); err != nil {
		t.Fatalf("SettingsError() = %v", err)
	}
	if got := r.GetEnv("SLACK_CLIENT_ID"); got != "from-env" {
		t.Errorf("SLACK_CLIENT_ID = %v, want from-env", got)
	}
	if got := r.GetEnv("SLACK_SIGNING_SECRET"); got != "file-secret" {
		t.Errorf("SLACK_SIGNING_SECRET = %v, want file-secret", got)
	}

	missing := NewEnvReader(WithEnvironment(nil), WithSettingsFile(filepath.Join(dir, "nope.json")))
	if missing.SettingsError() == nil {
		t.Errorf("SettingsError() = nil, want error for missing file")
	}
}
