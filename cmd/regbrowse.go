package main

import (
	"fmt"
	"os"

	"github.com/adotmob/regbrowse/cmd/subcmd"
	"github.com/adotmob/regbrowse/impl/cmdline"
	"github.com/adotmob/regbrowse/impl/config"
	"github.com/adotmob/regbrowse/impl/globals"
)

// set by the build
var (
	buildVer string
	buildDtm string
)

func main() {
	fromCmdline, cfg, err := cmdline.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error parsing the command line: %s\n", err)
		os.Exit(1)
	}
	if fromCmdline.Command == "" {
		// the parser displayed help
		os.Exit(0)
	}
	if cfg.ConfigFile != "" {
		if err := config.Load(cfg.ConfigFile); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
	}
	config.Merge(fromCmdline, cfg)
	globals.ConfigureLogging(config.GetLogLevel(), config.GetLogFile())

	switch fromCmdline.Command {
	case "version":
		fmt.Printf("regbrowse version: %s build date: %s\n", buildVer, buildDtm)
	case "serve":
		err = subcmd.Serve(buildVer, buildDtm)
	case "crawl":
		err = subcmd.Crawl(os.Stdout)
	case "list":
		err = subcmd.List(os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
