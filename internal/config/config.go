package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"weekplan/internal/calendar"
	"weekplan/internal/storage"
	"weekplan/internal/task"
)

const (
	DefaultConfigFileName = "config.toml"
	AppName               = "weekplan"
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "WEEKPLAN_CONFIG"
)

type Keymap struct {
	Quit     string `toml:"quit"`
	Add      string `toml:"add"`
	Up       string `toml:"up"`
	Down     string `toml:"down"`
	Delete   string `toml:"delete"`
	Edit     string `toml:"edit"`
	Confirm  string `toml:"confirm"`
	Cancel   string `toml:"cancel"`
	PrevWeek string `toml:"prev_week"`
	NextWeek string `toml:"next_week"`
	ThisWeek string `toml:"this_week"`
	PrevDay  string `toml:"prev_day"`
	NextDay  string `toml:"next_day"`
}

type Config struct {
	// WeekStart is a weekday name; empty means Monday.
	WeekStart string `toml:"week_start"`
	// Backend selects the volatile task store: "memory" or "sqlite".
	Backend string `toml:"backend"`
	// Strict turns silent no-ops into errors and rejects tasks that end
	// before they start.
	Strict   bool   `toml:"strict"`
	LogLevel string `toml:"log_level"`

	Placeholder task.Defaults `toml:"placeholder"`
	Keys        Keymap        `toml:"keys"`
}

// ResolveConfigPath returns $WEEKPLAN_CONFIG when set, otherwise
// <user config dir>/weekplan/config.toml, falling back to the working
// directory when no user config dir is known.
func ResolveConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, AppName, DefaultConfigFileName)
}

func LoadOrCreate(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if cfg.Backend == "" {
		cfg.Backend = storage.BackendMemory
	}
	return cfg, cfg.Validate()
}

// Validate checks the values that have a fixed vocabulary.
func (c Config) Validate() error {
	if _, err := calendar.WeekStartFromString(c.WeekStart); err != nil {
		return err
	}
	switch c.Backend {
	case "", storage.BackendMemory, storage.BackendSQLite:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	sh, sm, err := task.ParseClock(c.Placeholder.Start)
	if err != nil {
		return fmt.Errorf("config: placeholder start: %w", err)
	}
	eh, em, err := task.ParseClock(c.Placeholder.End)
	if err != nil {
		return fmt.Errorf("config: placeholder end: %w", err)
	}
	if eh*60+em <= sh*60+sm {
		return fmt.Errorf("config: placeholder: %w", task.ErrInvalidRange)
	}
	return nil
}

// Window builds the week window described by the config.
func (c Config) Window() calendar.Window {
	start, err := calendar.WeekStartFromString(c.WeekStart)
	if err != nil {
		start = time.Monday
	}
	return calendar.Window{WeekStart: start}
}

// StoreOptions maps the config onto storage options.
func (c Config) StoreOptions() []storage.Option {
	return []storage.Option{storage.WithStrict(c.Strict)}
}

func write(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func Default() Config {
	return Config{
		WeekStart:   "monday",
		Backend:     storage.BackendMemory,
		Strict:      false,
		LogLevel:    "info",
		Placeholder: task.DefaultPlaceholder(),
		Keys: Keymap{
			Quit:     "q",
			Add:      "a",
			Up:       "k",
			Down:     "j",
			Delete:   "d",
			Edit:     "e",
			Confirm:  "enter",
			Cancel:   "esc",
			PrevWeek: "[",
			NextWeek: "]",
			ThisWeek: "t",
			PrevDay:  "h",
			NextDay:  "l",
		},
	}
}
