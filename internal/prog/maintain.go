// Public domain.

package prog

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soniakeys/apass/internal/maintain"
	"github.com/soniakeys/apass/internal/reconcile"
)

func reconcileCmd(e *env) *cobra.Command {
	var primary int
	var neighbors []int
	cmd := &cobra.Command{
		Use:   "reconcile <save-dir>",
		Short: "Merge containers duplicated across zone borders",
		Long: `Reconcile visits every built zone, polar zones first, then the ring of
zones next to them, then the rest.  Zones of a wave that share no neighbor
run concurrently.  With --zone only that zone is reconciled, against the
zones given by --neighbors or else its adjacent zones.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().IntVar(&primary, "zone", 0, "reconcile only this zone")
	cmd.Flags().IntSliceVar(&neighbors, "neighbors", nil, "neighbors of --zone to reconcile against")
	cmd.RunE = e.inDir(func(cmd *cobra.Command, args []string) error {
		s, err := e.open(args[0])
		if err != nil {
			return err
		}
		eng := reconcile.New(s, e.cfg.Jobs)
		ctx := cmd.Context()
		fl := cmd.Flags()
		if fl.Changed("zone") {
			var nb []int
			if fl.Changed("neighbors") {
				nb = append([]int{}, neighbors...)
			}
			r, err := eng.Zone(ctx, primary, nb)
			if err != nil {
				s.Metrics.Failed()
				return err
			}
			s.Metrics.Reconciled()
			logResult(e.log, r)
			return nil
		}
		if fl.Changed("neighbors") {
			return errors.New("--neighbors needs --zone")
		}
		built, err := s.BuiltZones()
		if err != nil {
			return err
		}
		waves := reconcile.Schedule(eng.Graph, built)
		rs, err := eng.Run(ctx, waves)
		merged := 0
		for _, r := range rs {
			logResult(e.log, r)
			merged += r.Merged
		}
		e.log.Info("reconcile done",
			zap.Int("waves", len(waves)),
			zap.Int("zones", len(rs)),
			zap.Int("merged", merged))
		return err
	})
	return cmd
}

func logResult(log *zap.Logger, r reconcile.Result) {
	log.Debug("zone reconciled",
		zap.Int("zone", r.Zone),
		zap.Int("merged", r.Merged),
		zap.Int("cleared", r.Cleared),
		zap.Int("pending", r.Pending),
		zap.Ints("deferred", r.Deferred),
		zap.Ints("saved", r.Saved))
}

func purgeNightCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-night <save-dir> <night>...",
		Short: "Remove every record of the given nights",
		Long: `Purge-night drops the records of each night from the raw and container
files of every zone, and its files from the contrib lists.  A night is
named as in FRED file names, such as n120412, or by any file name holding
one.`,
		Args: cobra.MinimumNArgs(2),
		RunE: e.inDir(func(cmd *cobra.Command, args []string) error {
			s, err := e.open(args[0])
			if err != nil {
				return err
			}
			rs, err := maintain.PurgeNights(cmd.Context(), s, args[1:], e.cfg.Jobs)
			raw, cont := 0, 0
			for _, r := range rs {
				raw += r.Raw
				cont += r.Containers
			}
			e.log.Info("purge done",
				zap.Int("zones", len(rs)),
				zap.Int("raw", raw),
				zap.Int("containers", cont))
			return err
		}),
	}
}

func flagBadCmd(e *env) *cobra.Command {
	var nights, fields string
	cmd := &cobra.Command{
		Use:   "flag-bad <save-dir>",
		Short: "Mark records of bad nights and fields as unusable",
		Long: `Flag-bad clears the use flag of records from the nights listed in the
--nights file, one night per line, and from the night and field pairs of
the --fields file.  Records flagged non-photometric are cleared too.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&nights, "nights", "", "file of bad nights")
	cmd.Flags().StringVar(&fields, "fields", "", "file of bad night and field pairs")
	cmd.RunE = e.inDir(func(cmd *cobra.Command, args []string) error {
		s, err := e.open(args[0])
		if err != nil {
			return err
		}
		b, err := maintain.ReadBadData(nights, fields)
		if err != nil {
			return err
		}
		rs, err := maintain.FlagBad(cmd.Context(), s, b, e.cfg.Jobs)
		raw, cont := 0, 0
		for _, r := range rs {
			raw += r.Raw
			cont += r.Containers
		}
		e.log.Info("flag done",
			zap.Int("zones", len(rs)),
			zap.Int("raw", raw),
			zap.Int("containers", cont))
		return err
	})
	return cmd
}
