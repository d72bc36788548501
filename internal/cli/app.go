package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Joseda-hg/lazyboard/internal/apperr"
	"github.com/Joseda-hg/lazyboard/internal/board"
	"github.com/Joseda-hg/lazyboard/internal/config"
	"github.com/Joseda-hg/lazyboard/internal/db"
	"github.com/Joseda-hg/lazyboard/internal/logging"
	"github.com/Joseda-hg/lazyboard/internal/notify"
	"github.com/Joseda-hg/lazyboard/internal/task"
	"github.com/Joseda-hg/lazyboard/internal/validate"
)

// AgentEnv names the environment variable that sets the acting agent.
const AgentEnv = "LAZYBOARD_AGENT"

var errNoBoard = errors.New("No board found. Run 'lazyboard init' first")

// app is everything a command needs once settings are resolved.
type app struct {
	cfg     config.Config
	cfgPath string
	store   *db.DB
	dir     *board.Directory
	engine  *task.Engine
	redis   *redis.Client
	agent   string
	log     *logrus.Entry

	closers []func() error
}

type openMode int

const (
	requireBoard openMode = iota
	allowEmpty
)

// loadSettings reads the config file and applies the storage flags on top.
func loadSettings(opts *globalOptions) (config.Config, string, error) {
	path := opts.configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, "", err
	}

	if opts.driver != "" {
		cfg.Storage.Driver = opts.driver
	}
	if opts.dsn != "" {
		cfg.Storage.DSN = opts.dsn
	} else {
		cfg.Storage.DSN = resolveDSN(path, cfg.Storage)
	}
	return cfg, path, nil
}

// resolveDSN anchors a relative sqlite path at the project root, the directory
// holding .lazyboard/.
func resolveDSN(cfgPath string, storage config.StorageConfig) string {
	dsn := storage.DSN
	if dialect, err := db.ParseDialect(storage.Driver); err != nil || dialect != db.DialectSQLite {
		return dsn
	}
	if dsn == "" || filepath.IsAbs(dsn) || strings.HasPrefix(dsn, ":") || strings.HasPrefix(dsn, "file:") {
		return dsn
	}
	root := filepath.Dir(filepath.Dir(cfgPath))
	return filepath.Join(root, dsn)
}

func missingSQLiteFile(storage config.StorageConfig) bool {
	dialect, err := db.ParseDialect(storage.Driver)
	if err != nil || dialect != db.DialectSQLite {
		return false
	}
	if strings.HasPrefix(storage.DSN, ":") || strings.HasPrefix(storage.DSN, "file:") || strings.Contains(storage.DSN, "?") {
		return false
	}
	_, err = os.Stat(storage.DSN)
	return errors.Is(err, os.ErrNotExist)
}

// resolveAgent picks the acting agent: --agent, then $LAZYBOARD_AGENT, then config.
func resolveAgent(opts *globalOptions, cfg config.Config) (string, error) {
	agent := opts.agent
	if agent == "" {
		agent = os.Getenv(AgentEnv)
	}
	if agent == "" {
		agent = cfg.Defaults.Agent
	}
	return validate.AgentName(agent)
}

// openApp wires config, logging, storage, notifications and the engine.
// Logs go to logOut; nil discards them.
func openApp(ctx context.Context, opts *globalOptions, mode openMode, logOut io.Writer) (*app, error) {
	cfg, path, err := loadSettings(opts)
	if err != nil {
		return nil, err
	}

	closeLog, err := logging.Setup(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, cfgPath: path, log: logging.Component("cli"), closers: []func() error{closeLog}}

	if a.agent, err = resolveAgent(opts, cfg); err != nil {
		_ = a.Close()
		return nil, err
	}

	if mode == requireBoard && missingSQLiteFile(cfg.Storage) {
		_ = a.Close()
		return nil, errNoBoard
	}

	a.store, err = db.Open(ctx, db.Options{
		Driver: cfg.Storage.Driver,
		DSN:    cfg.Storage.DSN,
		Logger: logging.Component("db"),
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open board database: %w", err)
	}
	a.closers = append(a.closers, a.store.Close)

	a.dir = board.New(a.store)
	a.dir.SetLogger(logging.Component("board"))

	if mode == requireBoard {
		existing, err := a.dir.GetBoard(ctx)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		if existing == nil {
			_ = a.Close()
			return nil, errNoBoard
		}
	}

	var publisher notify.Publisher = notify.Nop{}
	if cfg.Notify.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.Notify.RedisAddr})
		a.closers = append(a.closers, a.redis.Close)
		publisher = notify.NewRedisPublisher(a.redis, cfg.Notify.Channel)
	}

	a.engine = task.New(a.store, a.dir,
		task.WithDefaults(cfg.Defaults.Column, cfg.Defaults.Agent),
		task.WithInProgressColumn(cfg.Workflow.InProgressColumn),
		task.WithSimilarity(cfg.Workflow.SimilarityThreshold, cfg.Workflow.RejectThreshold),
		task.WithPublisher(publisher),
		task.WithLogger(logging.Component("engine")),
	)

	a.log.WithFields(logrus.Fields{
		"driver": cfg.Storage.Driver,
		"agent":  a.agent,
		"notify": cfg.Notify.RedisAddr != "",
	}).Debug("board opened")
	return a, nil
}

// withApp opens the board for cmd, runs fn with the agent in its context and closes everything.
func withApp(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, opts, requireBoard, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(task.ContextWithActor(ctx, a.agent), a)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// resolveTaskID accepts a full id or a unique prefix of one.
func resolveTaskID(ctx context.Context, engine *task.Engine, ref string) (string, error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if ref == "" {
		return "", apperr.Validation("Task ID is required")
	}
	if validate.IsTaskID(ref) {
		return ref, nil
	}

	matches, err := engine.FindByPrefix(ctx, ref, 2)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", apperr.NotFound("Task '%s' not found", ref)
	case 1:
		return matches[0], nil
	default:
		return "", apperr.Validation("Task ID '%s' is ambiguous. Use more characters", ref)
	}
}
