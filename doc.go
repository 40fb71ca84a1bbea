/*
Command apass organizes APASS photometry into a sky partitioned store with one
container per star.

Contents

  Program overview
  Command line usage
  Configuration
  Save directory
  Reconciliation


Program overview

Input is FRED files, the text output of the APASS reduction pipeline, one
line per observation.  The sky is cut into zones by a quadtree of uniform
depth.  Zones north of the polar cutoff form one north zone, zones south of
it one south zone.  Each observation goes to the raw file of its zone.

Building a zone puts its observations into containers.  A container is a
box on the sky holding every observation of one star.  A new observation
starts a container, a box one arc second across, or joins every container
its box overlaps, merging them.  Containers are kept in a second quadtree
within the zone.

A star near a zone edge can end up with a container on each side.  Build
marks such containers as border containers and reconcile merges them
across zones, so that at the end no two containers of the store overlap.

Sample run:

  apass make-zones save
  apass ingest save n120412.0001.fred n120412.0002.fred
  apass build save
  apass reconcile save
  apass verify save


Command line usage

  apass <command> [flags] <save-dir> [args]

Commands:

  make-zones <save-dir>             build and save the zone index
  ingest <save-dir> <fred>...       append records to raw zone files
  build <save-dir> [zone-file...]   make containers from raw zone files
  reconcile <save-dir>              merge containers across zone borders
  purge-night <save-dir> <night>... remove the records of nights
  flag-bad <save-dir>               mark bad nights and fields unusable
  find-zone <save-dir> <ra> <dec>   print the zone of a position
  dump-zones <save-dir>             print zone extents as CSV
  dump-star <save-dir>              print the records of a container
  summarize <save-dir>              print counts per zone
  verify <save-dir>                 check for overlaps across zones
  find-broken <save-dir>            list zones missing files
  upgrade <fredbin>...              rewrite files of the old layout

Flags of every command:

  --config file        configuration, default <save-dir>/apass.yaml
  --log-level level    debug, info, warn or error
  --log-format format  console or json
  --metrics-file file  write counters in node exporter textfile format
  -j, --jobs n         zones processed concurrently

"apass help <command>" describes a command and its flags.

Ingest --remove deletes records exactly matching those of the files given.
Containers are not touched, build the zones printed afterwards.


Configuration

The configuration file is YAML.  Values of the form ${NAME} are replaced
by the environment variable NAME.  All keys are optional:

  global_depth: 6     # depth of the zone index
  zone_depth: 6       # depth of the container tree of each zone
  polar_cutoff: 85    # degrees
  jobs: 8             # default GOMAXPROCS
  lock:
    timeout: 100s
    retry: 50ms
    max_retry: 1s
  log:
    level: info
    format: console
    development: false
  metrics_file: ""

The index depth is fixed when make-zones runs.  Changing global_depth
afterwards has no effect on an existing save directory.


Save directory

  global.json                 the zone index
  ingest.errorlog             files ingest could not parse, and why
  z<zone>.fredbin             raw records of a zone
  z<zone>-container.fredbin   records in container order
  z<zone>-zone.json           container tree
  z<zone>-border-rects.json   border containers
  z<zone>-contrib.txt         FRED files that added records
  z<zone>-container.fredbin.lock

Zone numbers are five digits or more.  Fredbin files are fixed size little
endian records of 112 bytes.  Every process takes the lock of a zone before
touching any of its files, so commands can run concurrently on one save
directory.  Files are replaced by rename and are never seen half written.


Reconciliation

Reconcile locks a zone together with the zones around it, merges each
border container with the containers of the neighbors it overlaps, then
writes every changed zone before releasing the locks.  A container stops
being a border container once every zone it reaches has been seen.  A
neighbor not yet built is skipped and its containers are picked up by a
later run.

Zones are visited in waves, the polar zones first, then the zones next to
them, then the rest.  Zones of one wave with no neighbor in common run
concurrently.

Building a zone again starts over from its raw file, losing containers
merged in from neighbors.  After building some zones, build all of them
and reconcile again.

-------------
Public domain.
*/
package main
