// Public domain.

package prog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soniakeys/apass/internal/fsutil"
	"github.com/soniakeys/apass/internal/store"
	"github.com/soniakeys/apass/internal/zoneindex"
)

func makeZonesCmd(e *env) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "make-zones <save-dir>",
		Short: "Build the global zone index and save it",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing index")
	cmd.RunE = e.inDir(func(cmd *cobra.Command, args []string) error {
		l := store.Layout{Dir: args[0]}
		if err := os.MkdirAll(l.Dir, 0o755); err != nil {
			return err
		}
		if fsutil.Exists(l.IndexFile()) && !force {
			return fmt.Errorf("%s exists, use --force to replace it", l.IndexFile())
		}
		x := zoneindex.Build(e.cfg.GlobalDepth, e.cfg.PolarCutoff)
		if err := l.WriteIndex(x); err != nil {
			return err
		}
		e.log.Info("index written",
			zap.String("file", l.IndexFile()),
			zap.Int("depth", x.Depth()),
			zap.Int("zones", len(x.Zones())))
		return nil
	})
	return cmd
}

func findZoneCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "find-zone <save-dir> <ra> <dec>...",
		Short: "Print the zone of each position, in degrees",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 3 || len(args)%2 == 0 {
				return fmt.Errorf("want a save directory and ra dec pairs")
			}
			return nil
		},
		RunE: e.inDir(func(cmd *cobra.Command, args []string) error {
			s, err := e.open(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i := 1; i < len(args); i += 2 {
				ra, dec, err := parsePosition(args[i], args[i+1])
				if err != nil {
					return err
				}
				id, err := s.Index.ZoneID(ra, dec)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s %s\n", args[i], args[i+1], store.ZoneName(id))
			}
			return nil
		}),
	}
}

func parsePosition(ra, dec string) (float64, float64, error) {
	r, err := strconv.ParseFloat(ra, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("ra: %w", err)
	}
	d, err := strconv.ParseFloat(dec, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("dec: %w", err)
	}
	if d < -90 || d > 90 {
		return 0, 0, fmt.Errorf("dec %v out of range", d)
	}
	return r, d, nil
}

func dumpZonesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "dump-zones <save-dir>",
		Short: "Print the extent of every zone as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: e.inDir(func(cmd *cobra.Command, args []string) error {
			s, err := e.open(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "zone_id, ra_min, ra_max, dec_min, dec_max")
			w := csv.NewWriter(out)
			f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
			for _, id := range s.Index.Zones() {
				r, _ := s.Index.Rect(id)
				w.Write([]string{strconv.Itoa(id), f(r.XMin), f(r.XMax), f(r.YMin), f(r.YMax)})
			}
			w.Flush()
			return w.Error()
		}),
	}
}
