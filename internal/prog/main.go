// Public domain.

// Package prog is the apass command.
package prog

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/soniakeys/exit"
	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/soniakeys/apass/internal/config"
	"github.com/soniakeys/apass/internal/fsutil"
	"github.com/soniakeys/apass/internal/logger"
	"github.com/soniakeys/apass/internal/metrics"
	"github.com/soniakeys/apass/internal/store"
)

const versionString = "apass version 0.1 Go source."
const copyrightString = "Public domain."

// Main runs the command line and exits non-zero on any error.
func Main() {
	defer exit.Handler()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRoot().ExecuteContext(ctx); err != nil {
		exit.Log(err)
	}
}

// env is the state shared by every command of one run.
type env struct {
	configFile  string
	logLevel    string
	logFormat   string
	metricsFile string
	jobs        int

	cfg     config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
}

func newRoot() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "apass",
		Short:         "Build and reconcile the APASS zone store",
		Version:       versionString + "\n" + copyrightString,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&e.configFile, "config", "", "config file, default <save-dir>/"+store.ConfigName)
	pf.StringVar(&e.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&e.logFormat, "log-format", "", "console or json")
	pf.StringVar(&e.metricsFile, "metrics-file", "", "write counters here at the end of the run")
	pf.IntVarP(&e.jobs, "jobs", "j", 0, "concurrent zones, default from config")

	root.AddCommand(
		makeZonesCmd(e),
		ingestCmd(e),
		buildCmd(e),
		reconcileCmd(e),
		purgeNightCmd(e),
		flagBadCmd(e),
		findZoneCmd(e),
		dumpZonesCmd(e),
		dumpStarCmd(e),
		summarizeCmd(e),
		verifyCmd(e),
		findBrokenCmd(e),
		upgradeCmd(e),
	)
	return root
}

// inDir wraps the body of a command whose first argument is the save
// directory.
func (e *env) inDir(f func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return e.wrap(true, f)
}

// run wraps the body of a command without a save directory.
func (e *env) run(f func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return e.wrap(false, f)
}

// wrap adds setup and the end of run bookkeeping.
func (e *env) wrap(hasDir bool, f func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		dir := ""
		if hasDir && len(args) > 0 {
			dir = args[0]
		}
		if err := e.setup(cmd, dir); err != nil {
			return err
		}
		err := f(cmd, args)
		if err != nil {
			e.log.Error("failed", zap.Error(err))
		}
		return errs.Combine(err, e.finish())
	}
}

func (e *env) setup(cmd *cobra.Command, dir string) error {
	fn := e.configFile
	if fn == "" && dir != "" {
		if d := filepath.Join(dir, store.ConfigName); fsutil.Exists(d) {
			fn = d
		}
	}
	e.cfg = config.Default()
	if fn != "" {
		c, err := config.Load(fn)
		if err != nil {
			return err
		}
		e.cfg = c
	}
	if e.logLevel != "" {
		e.cfg.Log.Level = e.logLevel
	}
	if e.logFormat != "" {
		e.cfg.Log.Format = e.logFormat
	}
	if e.metricsFile != "" {
		e.cfg.MetricsFile = e.metricsFile
	}
	if e.jobs > 0 {
		e.cfg.Jobs = e.jobs
	}
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	log, err := logger.New(logger.Config{
		Level:       e.cfg.Log.Level,
		Development: e.cfg.Log.Development,
		Encoding:    e.cfg.Log.Format,
	})
	if err != nil {
		return err
	}
	e.log = log.With(zap.String("run", uuid.NewString()), zap.String("cmd", cmd.Name()))
	e.metrics = metrics.New()
	if fn != "" {
		e.log.Debug("config", zap.String("file", fn))
	}
	return nil
}

func (e *env) finish() error {
	var g errs.Group
	if fn := e.cfg.MetricsFile; fn != "" {
		g.Add(e.metrics.WriteFile(fn))
	}
	_ = e.log.Sync() // fails on terminals
	return g.Err()
}

// open returns the store of a save directory.
func (e *env) open(dir string) (*store.Store, error) {
	s, err := store.New(dir, e.cfg.ZoneDepth, e.cfg.LockOptions(), e.log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	s.Metrics = e.metrics
	return s, nil
}
