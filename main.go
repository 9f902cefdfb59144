package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"web/arkmap/cluster"
	"web/arkmap/logger"
)

const usage = `usage: arkmap [flags] <command> [args]

commands:
  import <file.yaml>   convert a YAML catalog into a snapshot
  generate             write a synthetic catalog of -n locations
  list                 list the snapshots in -dir

flags:
`

func main() {
	dir := flag.String("dir", "data/catalogs", "catalog snapshot directory")
	format := flag.String("format", "zst", "snapshot format: zst or arkm")
	n := flag.Int("n", 1000, "number of locations for generate")
	seed := flag.Int64("seed", 42, "random seed for generate")
	name := flag.String("name", "generated", "catalog name for generate")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	logger.Init(*logLevel, "text")

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var err error
	switch flag.Arg(0) {
	case "import":
		if flag.NArg() != 2 {
			flag.Usage()
			os.Exit(2)
		}
		err = importCatalog(*dir, *format, flag.Arg(1))
	case "generate":
		err = generateCatalog(*dir, *format, *name, *n, *seed)
	case "list":
		err = listCatalogs(*dir)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Log.WithError(err).Error(flag.Arg(0) + " failed")
		os.Exit(1)
	}
}

func extension(format string) (string, error) {
	switch format {
	case "zst":
		return cluster.ExtCompressed, nil
	case "arkm":
		return cluster.ExtMMap, nil
	}
	return "", fmt.Errorf("unknown format %q", format)
}

func importCatalog(dir, format, path string) error {
	ext, err := extension(format)
	if err != nil {
		return err
	}

	c, err := cluster.LoadCatalogYAML(path)
	if err != nil {
		return err
	}
	return save(dir, ext, c)
}

func generateCatalog(dir, format, name string, n int, seed int64) error {
	ext, err := extension(format)
	if err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("location count must be positive, got %d", n)
	}

	start := time.Now()
	c := cluster.NewCatalog(name, cluster.GenerateTestLocations(n, seed))
	logger.Log.WithFields(logrus.Fields{
		"locations": n,
		"seed":      seed,
		"took":      time.Since(start),
	}).Info("generated catalog")
	return save(dir, ext, c)
}

func save(dir, ext string, c *cluster.Catalog) error {
	start := time.Now()
	path, err := cluster.SaveCatalog(dir, c, ext)
	if err != nil {
		return err
	}

	fields := logrus.Fields{
		"id":        c.ID,
		"path":      path,
		"locations": len(c.Locations),
		"took":      time.Since(start),
	}
	if stat, err := os.Stat(path); err == nil {
		fields["size"] = humanize.Bytes(uint64(stat.Size()))
	}
	logger.Log.WithFields(fields).Info("saved catalog")
	fmt.Println(c.ID)
	return nil
}

func listCatalogs(dir string) error {
	infos, err := cluster.ListCatalogs(dir)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Printf("No catalogs in %s\n", dir)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLOCATIONS\tFORMAT\tSIZE\tCREATED")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			info.ID, info.Name, info.NumLocations, info.Format, info.Size, humanize.Time(info.Timestamp))
	}
	return w.Flush()
}
