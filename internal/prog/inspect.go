// Public domain.

package prog

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/soniakeys/meeus/v3/angle"
	"github.com/soniakeys/unit"
	"github.com/spf13/cobra"
	"github.com/zeebo/errs"

	"github.com/soniakeys/apass/internal/border"
	"github.com/soniakeys/apass/internal/fredbin"
	"github.com/soniakeys/apass/internal/store"
	"github.com/soniakeys/apass/internal/verify"
	"github.com/soniakeys/apass/internal/zone"
)

func dumpStarCmd(e *env) *cobra.Command {
	var at []float64
	var ids []int
	cmd := &cobra.Command{
		Use:   "dump-star <save-dir>",
		Short: "Print the records of one container",
		Long: `Dump-star finds a container by a position inside it, --at ra,dec, or by
its ids, --id zone,node,container, and prints its records.  A position is
looked up in its own zone and then in the adjacent zones, where
reconciliation may have moved the container.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().Float64SliceVar(&at, "at", nil, "ra,dec in degrees")
	cmd.Flags().IntSliceVar(&ids, "id", nil, "zone,node,container")
	cmd.MarkFlagsMutuallyExclusive("at", "id")
	cmd.RunE = e.inDir(func(cmd *cobra.Command, args []string) error {
		s, err := e.open(args[0])
		if err != nil {
			return err
		}
		var c *zone.Container
		switch {
		case len(at) == 2:
			c, err = findAt(cmd.Context(), s, at[0], at[1])
		case len(ids) == 3:
			c, err = findID(cmd.Context(), s, ids[0], ids[1], ids[2])
		default:
			return fmt.Errorf("want --at ra,dec or --id zone,node,container")
		}
		if err != nil {
			return err
		}
		return printContainer(cmd.OutOrStdout(), c)
	})
	return cmd
}

func findAt(ctx context.Context, s *store.Store, ra, dec float64) (*zone.Container, error) {
	id, err := s.Index.ZoneID(ra, dec)
	if err != nil {
		return nil, err
	}
	for _, z := range append([]int{id}, s.Index.Adjacency()[id]...) {
		var c *zone.Container
		err := withZone(ctx, s, z, func(zn *zone.Zone) {
			c, _ = zn.Container(ra, dec)
		})
		switch {
		case errors.Is(err, store.ErrNoData):
			continue
		case err != nil:
			return nil, err
		case c != nil:
			return c, nil
		}
	}
	return nil, fmt.Errorf("no container at %v %v", ra, dec)
}

func findID(ctx context.Context, s *store.Store, z, node, container int) (*zone.Container, error) {
	var c *zone.Container
	err := withZone(ctx, s, z, func(zn *zone.Zone) {
		c, _ = zn.Locate(node, container)
	})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("no container %s", border.Name(z, node, container))
	}
	return c, nil
}

// withZone calls f on a loaded zone while holding its lock.
func withZone(ctx context.Context, s *store.Store, id int, f func(*zone.Zone)) (err error) {
	u, err := s.Open(ctx, id)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, u.Close()) }()
	if err := u.Load(); err != nil {
		return err
	}
	f(u.Zone)
	return nil
}

func printContainer(w io.Writer, c *zone.Container) error {
	ra, dec := c.Rect.Center()
	fmt.Fprintf(w, "%s  center %.6f %+.6f  records %d  border %t\n",
		border.Name(c.ZoneID, c.NodeID, c.ContainerID), ra, dec, c.Len(), c.Border)
	fmt.Fprintln(w, fredbin.TextHeader)
	if err := fredbin.WriteText(w, c.Records); err != nil {
		return err
	}
	r0, d0 := unit.AngleFromDeg(ra), unit.AngleFromDeg(dec)
	fmt.Fprintln(w, "separation from center, arcsec:")
	for i := range c.Records {
		r := &c.Records[i]
		sep := angle.Sep(r0, d0, unit.AngleFromDeg(r.RA), unit.AngleFromDeg(r.Dec))
		fmt.Fprintf(w, "%6d %8.3f\n", i, sep.Sec())
	}
	return nil
}

func summarizeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <save-dir> [zone-file...]",
		Short: "Print record and container counts per zone",
		Args:  cobra.MinimumNArgs(1),
		RunE: e.inDir(func(cmd *cobra.Command, args []string) error {
			s, err := e.open(args[0])
			if err != nil {
				return err
			}
			ids, err := zoneArgs(s, args[1:], func() ([]int, error) { return nil, nil })
			if err != nil {
				return err
			}
			sms, err := verify.Summarize(cmd.Context(), s, ids)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "zone      raw  records  unused  containers  border    mean  stddev")
			var t verify.Summary
			for _, sm := range sms {
				printSummary(w, store.ZoneName(sm.Zone), sm)
				t.Raw += sm.Raw
				t.Records += sm.Records
				t.Unused += sm.Unused
				t.Containers += sm.Containers
				t.Border += sm.Border
			}
			if t.Containers > 0 {
				t.Mean = float64(t.Records) / float64(t.Containers)
			}
			printSummary(w, "total", t)
			return nil
		}),
	}
}

func printSummary(w io.Writer, name string, sm verify.Summary) {
	fmt.Fprintf(w, "%-6s %6d %8d %7d %11d %7d %7.2f %7.2f\n",
		name, sm.Raw, sm.Records, sm.Unused, sm.Containers, sm.Border, sm.Mean, sm.StdDev)
}

func verifyCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <save-dir>",
		Short: "Check that no two containers of different zones overlap",
		Args:  cobra.ExactArgs(1),
		RunE: e.inDir(func(cmd *cobra.Command, args []string) error {
			s, err := e.open(args[0])
			if err != nil {
				return err
			}
			ps, err := verify.Overlaps(cmd.Context(), s)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			cross := 0
			for _, p := range ps {
				if !p.Cross {
					continue
				}
				cross++
				fmt.Fprintf(w, "%s %v\n%s %v\n\n",
					border.Name(p.A.Zone, p.A.Node, p.A.Container), p.A.Rect,
					border.Name(p.B.Zone, p.B.Node, p.B.Container), p.B.Rect)
			}
			fmt.Fprintf(w, "%d overlapping pairs, %d across zones\n", len(ps), cross)
			if cross > 0 {
				return fmt.Errorf("%d containers overlap across zones", cross)
			}
			return nil
		}),
	}
}

func findBrokenCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "find-broken <save-dir>",
		Short: "List zones missing some of their files",
		Args:  cobra.ExactArgs(1),
		RunE: e.inDir(func(cmd *cobra.Command, args []string) error {
			s, err := e.open(args[0])
			if err != nil {
				return err
			}
			bs, err := verify.FindBroken(s)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, b := range bs {
				fmt.Fprintln(w, store.ZoneName(b.Zone))
				for _, fn := range b.Missing {
					fmt.Fprintln(w, "  missing", fn)
				}
			}
			return nil
		}),
	}
}
