// Package config handles avm.toml settings, with .env and AVM_* environment
// overrides on top.
package config

import (
	"abstractvm/pkg/report"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const FileName = "avm.toml"

type Config struct {
	Run    Run    `toml:"run"`
	Log    Log    `toml:"log"`
	Server Server `toml:"server"`
	Report Report `toml:"report"`

	// Path is the avm.toml that was loaded, empty when none was found.
	Path string `toml:"-"`
}

type Run struct {
	BatchSize int  `toml:"batch-size"`
	Tolerant  bool `toml:"tolerant"`
}

type Log struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

type Server struct {
	Addr         string `toml:"addr"`
	Secret       string `toml:"secret"`
	PasswordHash string `toml:"password-hash"`
	TokenTTL     string `toml:"token-ttl"`
	MaxLine      int    `toml:"max-line"`
}

type Report struct {
	Path string `toml:"path"`
	Mail Mail   `toml:"mail"`
}

type Mail struct {
	Host     string   `toml:"host"`
	Port     int      `toml:"port"`
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	From     string   `toml:"from"`
	To       []string `toml:"to"`
}

func Default() *Config {
	return &Config{
		Run:    Run{BatchSize: 64},
		Server: Server{Addr: ":7420", TokenTTL: "1h", MaxLine: 4096},
	}
}

// Load reads the avm.toml found in dir or its nearest parent, then applies
// dir/.env and the process environment. Finding no file is not an error.
func Load(dir string) (*Config, error) {
	cfg := Default()

	path, err := Find(dir)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := cfg.ReadFile(path); err != nil {
			return nil, err
		}
	}

	env, err := readDotEnv(filepath.Join(dir, ".env"))
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Find walks up from dir looking for avm.toml and returns its path, or ""
// when the filesystem root is reached first.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// ReadFile overlays the settings in path onto cfg.
func (cfg *Config) ReadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.Path = path
	return nil
}

func readDotEnv(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return env, nil
}

// applyEnv applies AVM_* variables. The process environment wins over the
// values read from .env.
func (cfg *Config) applyEnv(dotenv map[string]string) error {
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	num("AVM_BATCH_SIZE", &cfg.Run.BatchSize)
	if v, ok := lookup("AVM_TOLERANT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("AVM_TOLERANT: %w", err))
		} else {
			cfg.Run.Tolerant = b
		}
	}
	num("AVM_LOG_VERBOSITY", &cfg.Log.Verbosity)
	str("AVM_LOG_PATH", &cfg.Log.Path)
	str("AVM_SERVER_ADDR", &cfg.Server.Addr)
	str("AVM_SERVER_SECRET", &cfg.Server.Secret)
	str("AVM_SERVER_PASSWORD_HASH", &cfg.Server.PasswordHash)
	str("AVM_SERVER_TOKEN_TTL", &cfg.Server.TokenTTL)
	num("AVM_SERVER_MAX_LINE", &cfg.Server.MaxLine)
	str("AVM_REPORT_PATH", &cfg.Report.Path)
	str("AVM_SMTP_HOST", &cfg.Report.Mail.Host)
	num("AVM_SMTP_PORT", &cfg.Report.Mail.Port)
	str("AVM_SMTP_USER", &cfg.Report.Mail.Username)
	str("AVM_SMTP_PASS", &cfg.Report.Mail.Password)
	str("AVM_MAIL_FROM", &cfg.Report.Mail.From)
	if v, ok := lookup("AVM_MAIL_TO"); ok {
		cfg.Report.Mail.To = nil
		for _, addr := range strings.Split(v, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				cfg.Report.Mail.To = append(cfg.Report.Mail.To, addr)
			}
		}
	}
	return errors.Join(errs...)
}

// Validate checks values that would otherwise fail late.
func (cfg *Config) Validate() error {
	if cfg.Run.BatchSize <= 0 {
		return fmt.Errorf("run.batch-size must be positive, got %d", cfg.Run.BatchSize)
	}
	if cfg.Server.MaxLine <= 0 {
		return fmt.Errorf("server.max-line must be positive, got %d", cfg.Server.MaxLine)
	}
	if _, err := cfg.TokenTTL(); err != nil {
		return err
	}
	return nil
}

func (cfg *Config) TokenTTL() (time.Duration, error) {
	d, err := time.ParseDuration(cfg.Server.TokenTTL)
	if err != nil {
		return 0, fmt.Errorf("server.token-ttl: %w", err)
	}
	return d, nil
}

// MailConfig converts the mail section for the report mailer.
func (cfg *Config) MailConfig() report.MailConfig {
	m := cfg.Report.Mail
	return report.MailConfig{
		Host:     m.Host,
		Port:     m.Port,
		Username: m.Username,
		Password: m.Password,
		From:     m.From,
		To:       m.To,
	}
}
