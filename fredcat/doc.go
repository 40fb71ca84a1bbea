/*
Command fredcat prints fredbin files as text.

  Usage: fredcat [options] <fredbin-file>...
    -l=false: read files of the old 100 byte layout
    -n=false: omit the column headings
    -s=false: print only the record count of each file
    -v=false: display version and copyright

Fredbin files are the raw and container files of an apass save directory.
Each record prints on one line with RA in hours and Dec in degrees,
sexagesimal, and the HJD as a UTC time.  The last columns are the zone,
node and container the record is stamped with, and whether it is used.

  RA            Dec            UTC                  Filt    Mag    Err  Airm  Night    Field ...
  07ʰ01ᵐ39.23ˢ  +0°40′27.7″    2012-04-12 14:23:21     8 16.5515 0.2880 1.310  n120412  10040L

Files of the old layout, before night names and the use flag, print with
-l.  "apass upgrade" rewrites them.
*/
package main
