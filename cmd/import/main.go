package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	flag "github.com/spf13/pflag"

	"mwiki/internal/bootstrap"
	"mwiki/internal/config"
	"mwiki/internal/importer"
)

func main() {
	cfg := config.Load()
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	author := fs.StringP("author", "a", "", "author recorded on imported pages")
	skip := fs.Bool("skip-existing", false, "leave pages that already exist untouched")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: import [flags] <directory>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}
	bootstrap.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w, st, err := bootstrap.OpenWiki(ctx, cfg)
	if err != nil {
		slog.Error("open store", "store", cfg.Store, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	var opts []importer.Option
	if *skip {
		opts = append(opts, importer.SkipExisting())
	}
	res, err := importer.Import(ctx, w, fs.Arg(0), *author, opts...)
	slog.Info("import finished", "root", fs.Arg(0), "imported", len(res.Imported), "skipped", len(res.Skipped))
	if err != nil {
		slog.Error("import", "err", err)
		os.Exit(1)
	}
}
