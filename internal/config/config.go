package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/Joseda-hg/lazyboard/internal/validate"
)

const (
	DirName   = ".lazyboard"
	FileName  = "config.json"
	EnvPrefix = "LAZYBOARD"
)

type Config struct {
	Board    BoardConfig    `json:"board" mapstructure:"board"`
	Defaults DefaultsConfig `json:"defaults" mapstructure:"defaults"`
	Workflow WorkflowConfig `json:"workflow" mapstructure:"workflow"`
	Storage  StorageConfig  `json:"storage" mapstructure:"storage"`
	Web      WebConfig      `json:"web" mapstructure:"web"`
	Notify   NotifyConfig   `json:"notify" mapstructure:"notify"`
	Log      LogConfig      `json:"log" mapstructure:"log"`
}

type BoardConfig struct {
	Name    string         `json:"name" mapstructure:"name" validate:"required,max=100"`
	Columns []ColumnConfig `json:"columns" mapstructure:"columns" validate:"required,min=1,dive"`
}

type ColumnConfig struct {
	ID         string `json:"id" mapstructure:"id" validate:"required"`
	Name       string `json:"name" mapstructure:"name" validate:"required"`
	WIPLimit   *int   `json:"wip_limit,omitempty" mapstructure:"wip_limit" validate:"omitempty,gt=0"`
	IsTerminal bool   `json:"is_terminal,omitempty" mapstructure:"is_terminal"`
}

type DefaultsConfig struct {
	Column string `json:"column" mapstructure:"column" validate:"required"`
	Agent  string `json:"agent" mapstructure:"agent" validate:"required"`
}

type WorkflowConfig struct {
	InProgressColumn    string  `json:"in_progress_column" mapstructure:"in_progress_column"`
	SimilarityThreshold float64 `json:"similarity_threshold" mapstructure:"similarity_threshold" validate:"gt=0,lte=1"`
	RejectThreshold     float64 `json:"reject_threshold" mapstructure:"reject_threshold" validate:"gtefield=SimilarityThreshold,lte=1"`
}

type StorageConfig struct {
	Driver string `json:"driver" mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `json:"dsn" mapstructure:"dsn" validate:"required"`
}

type WebConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	Port    int  `json:"port" mapstructure:"port" validate:"gt=0,lt=65536"`
}

type NotifyConfig struct {
	RedisAddr string `json:"redis_addr,omitempty" mapstructure:"redis_addr"`
	Channel   string `json:"channel" mapstructure:"channel" validate:"required"`
}

type LogConfig struct {
	Level  string `json:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" mapstructure:"format" validate:"oneof=text json"`
	File   string `json:"file,omitempty" mapstructure:"file"`
}

func intPtr(v int) *int { return &v }

// Default is the board every new project starts with.
func Default() Config {
	return Config{
		Board: BoardConfig{
			Name: "Kanban Board",
			Columns: []ColumnConfig{
				{ID: "backlog", Name: "Backlog"},
				{ID: "todo", Name: "Todo"},
				{ID: "in_progress", Name: "In Progress", WIPLimit: intPtr(3)},
				{ID: "review", Name: "Review"},
				{ID: "done", Name: "Done", IsTerminal: true},
			},
		},
		Defaults: DefaultsConfig{Column: "todo", Agent: "user"},
		Workflow: WorkflowConfig{
			InProgressColumn:    "in_progress",
			SimilarityThreshold: 0.5,
			RejectThreshold:     0.8,
		},
		Storage: StorageConfig{Driver: "sqlite", DSN: filepath.Join(DirName, "board.db")},
		Web:     WebConfig{Port: 8080},
		Notify:  NotifyConfig{Channel: "lazyboard:events"},
		Log:     LogConfig{Level: "warn", Format: "text"},
	}
}

func DefaultConfigPath() string {
	return filepath.Join(DirName, FileName)
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// Exists reports whether a config file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads path when it exists, applies LAZYBOARD_* environment overrides on top of
// the defaults and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigType("json")
	if path != "" && Exists(path) {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("board.name", d.Board.Name)
	columns := make([]map[string]any, 0, len(d.Board.Columns))
	for _, col := range d.Board.Columns {
		m := map[string]any{"id": col.ID, "name": col.Name, "is_terminal": col.IsTerminal}
		if col.WIPLimit != nil {
			m["wip_limit"] = *col.WIPLimit
		}
		columns = append(columns, m)
	}
	v.SetDefault("board.columns", columns)
	v.SetDefault("defaults.column", d.Defaults.Column)
	v.SetDefault("defaults.agent", d.Defaults.Agent)
	v.SetDefault("workflow.in_progress_column", d.Workflow.InProgressColumn)
	v.SetDefault("workflow.similarity_threshold", d.Workflow.SimilarityThreshold)
	v.SetDefault("workflow.reject_threshold", d.Workflow.RejectThreshold)
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.dsn", d.Storage.DSN)
	v.SetDefault("web.enabled", d.Web.Enabled)
	v.SetDefault("web.port", d.Web.Port)
	v.SetDefault("notify.redis_addr", d.Notify.RedisAddr)
	v.SetDefault("notify.channel", d.Notify.Channel)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
}

var validate10 = validator.New()

// Validate runs the struct tag rules and the checks that span fields.
func Validate(cfg Config) error {
	if err := validate10.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[string]struct{}, len(cfg.Board.Columns))
	for _, col := range cfg.Board.Columns {
		if _, err := validate.ColumnID(col.ID); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if _, dup := seen[col.ID]; dup {
			return fmt.Errorf("invalid config: duplicate column id %q", col.ID)
		}
		seen[col.ID] = struct{}{}
	}
	if _, ok := seen[cfg.Defaults.Column]; !ok {
		return fmt.Errorf("invalid config: default column %q is not a board column", cfg.Defaults.Column)
	}
	if _, err := validate.AgentName(cfg.Defaults.Agent); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, append(data, '\n'), 0o644)
}
