package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Run.BatchSize != 64 || cfg.Server.Addr != ":7420" || cfg.Server.MaxLine != 4096 {
		t.Fatalf("defaults wrong: %+v", cfg)
	}
	ttl, err := cfg.TokenTTL()
	if err != nil || ttl != time.Hour {
		t.Fatalf("token ttl wrong: %s %v", ttl, err)
	}
}

func TestLoadFindsFileInParent(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, FileName), `
[run]
batch-size = 8
tolerant = true

[server]
addr = "127.0.0.1:9000"

[report.mail]
host = "smtp.example.com"
port = 587
to = ["ops@example.com"]
`)
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(sub)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != filepath.Join(root, FileName) {
		t.Errorf("path wrong. got=%q", cfg.Path)
	}
	if cfg.Run.BatchSize != 8 || !cfg.Run.Tolerant {
		t.Errorf("run section wrong: %+v", cfg.Run)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Server.MaxLine != 4096 {
		t.Errorf("server section wrong: %+v", cfg.Server)
	}
	if !cfg.MailConfig().Enabled() {
		t.Errorf("mail should be enabled: %+v", cfg.Report.Mail)
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, FileName), "[run]\nbatch-size = 8\n")
	write(t, filepath.Join(dir, ".env"), "AVM_BATCH_SIZE=16\nAVM_SERVER_SECRET=fromdotenv\nAVM_MAIL_TO=a@x.org, b@x.org\n")
	t.Setenv("AVM_SERVER_SECRET", "fromenv")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Run.BatchSize != 16 {
		t.Errorf(".env should override avm.toml. got=%d", cfg.Run.BatchSize)
	}
	if cfg.Server.Secret != "fromenv" {
		t.Errorf("environment should override .env. got=%q", cfg.Server.Secret)
	}
	if len(cfg.Report.Mail.To) != 2 || cfg.Report.Mail.To[1] != "b@x.org" {
		t.Errorf("mail recipients wrong: %v", cfg.Report.Mail.To)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		env  map[string]string
	}{
		{"bad toml", "[run\n", nil},
		{"bad batch", "[run]\nbatch-size = 0\n", nil},
		{"bad ttl", "[server]\ntoken-ttl = \"soon\"\n", nil},
		{"bad env number", "", map[string]string{"AVM_SERVER_MAX_LINE": "lots"}},
		{"bad env bool", "", map[string]string{"AVM_TOLERANT": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.toml != "" {
				write(t, filepath.Join(dir, FileName), tt.toml)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(dir); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
