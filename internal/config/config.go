package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ModeIMAP = "imap"
	ModeMbox = "mbox"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type IMAPConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Mailbox            string `yaml:"mailbox"`
	UseTLS             bool   `yaml:"use_tls"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	UnseenOnly         bool   `yaml:"unseen_only"`
	MarkSeen           bool   `yaml:"mark_seen"`
}

type MboxConfig struct {
	Path string `yaml:"path"`
}

type MailConfig struct {
	Mode string     `yaml:"mode"` // imap or mbox
	IMAP IMAPConfig `yaml:"imap"`
	Mbox MboxConfig `yaml:"mbox"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the listener
}

type EventsConfig struct {
	URL string `yaml:"url"` // empty disables event publishing
}

type DedupeConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTL      Duration `yaml:"ttl"`
}

type Config struct {
	DB         DBConfig        `yaml:"db"`
	Mail       MailConfig      `yaml:"mail"`
	ArchiveDir string          `yaml:"archive_dir"`
	Metrics    MetricsConfig   `yaml:"metrics"`
	Events     EventsConfig    `yaml:"events"`
	Dedupe     DedupeConfig    `yaml:"dedupe"`
	Types      []*DocumentType `yaml:"types"`

	warnings []string
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result. Subject patterns and datetime formats are compiled
// here so a broken entry aborts startup instead of a later message.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	overrideFromEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Warnings reports the non-fatal findings collected during validation, so
// the caller can log them once a logger exists.
func (c *Config) Warnings() []string {
	return c.warnings
}

func (c *Config) validate() error {
	if c.DB.Host == "" || c.DB.User == "" || c.DB.Name == "" {
		return fmt.Errorf("db.host, db.user and db.name are required")
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}

	if c.Mail.Mode == "" {
		c.Mail.Mode = ModeIMAP
	}
	switch c.Mail.Mode {
	case ModeIMAP:
		if c.Mail.IMAP.Host == "" || c.Mail.IMAP.User == "" {
			return fmt.Errorf("mail.imap.host and mail.imap.user are required")
		}
		if c.Mail.IMAP.Port == 0 {
			if c.Mail.IMAP.UseTLS {
				c.Mail.IMAP.Port = 993
			} else {
				c.Mail.IMAP.Port = 143
			}
		}
		if c.Mail.IMAP.Mailbox == "" {
			c.Mail.IMAP.Mailbox = "INBOX"
		}
	case ModeMbox:
		if c.Mail.Mbox.Path == "" {
			return fmt.Errorf("mail.mbox.path is required")
		}
	default:
		return fmt.Errorf("mail.mode must be %q or %q, got %q", ModeIMAP, ModeMbox, c.Mail.Mode)
	}

	if c.Dedupe.Enabled {
		if c.Dedupe.Addr == "" {
			return fmt.Errorf("dedupe.addr is required when dedupe is enabled")
		}
		if c.Dedupe.TTL == 0 {
			c.Dedupe.TTL = Duration(30 * 24 * time.Hour)
		}
	}

	if len(c.Types) == 0 {
		c.warnings = append(c.warnings, "no document types configured; every message will be left unhandled")
	}

	needArchive := false
	seen := make(map[string]bool)
	for i, dt := range c.Types {
		warns, err := dt.Compile()
		if err != nil {
			return fmt.Errorf("types[%d]: %w", i, err)
		}
		c.warnings = append(c.warnings, warns...)
		if seen[dt.Name] {
			return fmt.Errorf("types[%d]: duplicate type name %q", i, dt.Name)
		}
		seen[dt.Name] = true
		if dt.SavePathTemplate != "" {
			needArchive = true
		}
	}
	if needArchive && c.ArchiveDir == "" {
		return fmt.Errorf("archive_dir is required because at least one type sets save_path_template")
	}

	return nil
}

func overrideFromEnv(cfg *Config) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DB.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.DB.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DB.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.DB.Name = name
	}

	if password := os.Getenv("IMAP_PASSWORD"); password != "" {
		cfg.Mail.IMAP.Password = password
	}

	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.Events.URL = url
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Dedupe.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Dedupe.Password = password
	}

	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		cfg.Metrics.Addr = addr
	}
}

// Duration wraps time.Duration so YAML values like "720h" decode directly.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
