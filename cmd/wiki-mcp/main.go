package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	flag "github.com/spf13/pflag"

	"mwiki/internal/bootstrap"
	"mwiki/internal/config"
	"mwiki/internal/mcptools"
)

func main() {
	cfg := config.Load()
	fs := flag.NewFlagSet("wiki-mcp", flag.ContinueOnError)
	httpAddr := fs.String("http", "", "serve streamable HTTP on this address instead of stdio (e.g. ':8090')")
	identity := fs.String("identity", cfg.MCPIdentity, "default author for pages_by_author")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	// stdout carries the protocol in stdio mode.
	bootstrap.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty)

	w, st, err := bootstrap.OpenWiki(context.Background(), cfg)
	if err != nil {
		slog.Error("open store", "store", cfg.Store, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	s := mcptools.NewServer(w, *identity)
	if *httpAddr != "" {
		slog.Info("starting MCP server", "transport", "http", "addr", *httpAddr)
		if err := server.NewStreamableHTTPServer(s).Start(*httpAddr); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	slog.Info("starting MCP server", "transport", "stdio")
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
