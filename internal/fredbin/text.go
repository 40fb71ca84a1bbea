// Public domain.

package fredbin

import (
	"fmt"
	"io"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"
)

// MJDOffset is added to HJD to get a full julian day.  FRED files carry the
// modified form, 56029.6 for example.
const MJDOffset = 2400000.5

// Time returns the observation time.
func (r *Record) Time() time.Time {
	return julian.JDToTime(r.HJD + MJDOffset)
}

// TextHeader labels the columns of WriteText.
const TextHeader = "RA            Dec            UTC                  Filt    Mag    Err  Airm  Night    Field                     Zone  Node  Cont  Use"

// WriteText prints one line per record, position sexagesimal.
func WriteText(w io.Writer, recs []Record) error {
	for i := range recs {
		r := &recs[i]
		use := "y"
		if !r.UseData {
			use = "n"
		}
		_, err := fmt.Fprintf(w, "%.2d %+.1d  %s  %3d %7.4f %6.4f %5.3f  %-7s  %-25s %5d %5d %5d  %s\n",
			sexa.FmtRA(unit.RAFromDeg(r.RA)),
			sexa.FmtAngle(unit.AngleFromDeg(r.Dec)),
			r.Time().Format("2006-01-02 15:04:05"),
			r.FilterID, r.XMag1, r.XErr1, r.Airmass,
			r.NightString(), r.FieldName(),
			r.ZoneID, r.NodeID, r.ContainerID, use)
		if err != nil {
			return Error.Wrap(err)
		}
	}
	return nil
}
