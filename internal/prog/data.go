// Public domain.

package prog

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soniakeys/apass/internal/build"
	"github.com/soniakeys/apass/internal/fred"
	"github.com/soniakeys/apass/internal/fredbin"
	"github.com/soniakeys/apass/internal/ingest"
	"github.com/soniakeys/apass/internal/store"
)

func ingestCmd(e *env) *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "ingest <save-dir> <fred-file>...",
		Short: "Add the records of FRED files to the raw zone files",
		Long: `Ingest appends the records of each FRED file to the raw file of the zone
holding it, in the order given.  Files that cannot be parsed are listed in
the error log of the save directory and skipped.  The raw files changed are
printed, they need to be built again.`,
		Args: cobra.MinimumNArgs(2),
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "remove records exactly matching those of the files")
	cmd.RunE = e.inDir(func(cmd *cobra.Command, args []string) error {
		s, err := e.open(args[0])
		if err != nil {
			return err
		}
		in := &ingest.Ingester{Store: s, Jobs: e.cfg.Jobs, Remove: remove}
		rep, err := in.Files(cmd.Context(), args[1:])
		out := cmd.OutOrStdout()
		for _, id := range rep.Zones {
			fmt.Fprintln(out, s.RawFile(id))
		}
		e.log.Info("ingest done",
			zap.Bool("remove", remove),
			zap.Int("files", len(rep.Files)),
			zap.Int("failed", rep.Failed),
			zap.Int("records", rep.Records),
			zap.Int("zones", len(rep.Zones)))
		return err
	})
	return cmd
}

func buildCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "build <save-dir> [zone-file...]",
		Short: "Build container trees and border info from raw zone files",
		Long: `Build replaces the containers of each zone with ones made from its raw
file.  With no zone files every zone with a raw file is built.  Containers
merged in from neighbors by reconciliation are lost, so after building a
subset of zones reconcile them with their neighbors rebuilt too.`,
		Args: cobra.MinimumNArgs(1),
		RunE: e.inDir(func(cmd *cobra.Command, args []string) error {
			s, err := e.open(args[0])
			if err != nil {
				return err
			}
			ids, err := zoneArgs(s, args[1:], s.RawZones)
			if err != nil {
				return err
			}
			rs, err := build.All(cmd.Context(), s, ids, e.cfg.Jobs)
			n := 0
			for _, r := range rs {
				n += r.Merged
			}
			e.log.Info("build done", zap.Int("zones", len(rs)), zap.Int("merged", n))
			return err
		}),
	}
}

// zoneArgs returns the zones named by file names, or the zones listed by
// all when there are none.
func zoneArgs(s *store.Store, fns []string, all func() ([]int, error)) ([]int, error) {
	if len(fns) == 0 {
		return all()
	}
	ids := make([]int, len(fns))
	for i, fn := range fns {
		id, ok := store.ZoneFromName(fn)
		if !ok {
			return nil, fmt.Errorf("%s: not a zone file name", fn)
		}
		if _, ok := s.Index.Rect(id); !ok {
			return nil, fmt.Errorf("%s: zone %d not in the index", fn, id)
		}
		ids[i] = id
	}
	return ids, nil
}

func upgradeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade <fredbin-file>...",
		Short: "Rewrite fredbin files of the old 100 byte layout",
		Long: `Upgrade rewrites each file in the current layout.  Records get the
night name found in the file name, if any, and are marked usable.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: e.run(func(cmd *cobra.Command, args []string) error {
			for _, fn := range args {
				recs, err := fredbin.ReadLegacyFile(fn)
				if err != nil {
					return err
				}
				if n := fred.NightName(filepath.Base(fn)); n != "" {
					for i := range recs {
						recs[i].SetNightName(n)
					}
				}
				if err := fredbin.WriteFile(fn, recs); err != nil {
					return err
				}
				e.log.Info("upgraded", zap.String("file", fn), zap.Int("records", len(recs)))
			}
			return nil
		}),
	}
}
