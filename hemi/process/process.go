// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Process package parses the command line and runs the server in the foreground.

package process

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/diogin/tinox/hemi"
	"github.com/diogin/tinox/hemi/library/system"
)

const usage = `
%s (%s)
================================================================================

  %s [ACTION] [OPTIONS]

ACTION
------

  serve      # start as server
  check      # dry run to check config
  help       # show this message
  version    # show version info
  advise     # show how to optimize current platform

  Only one action is allowed at a time.
  If ACTION is not specified, the default action is "serve".

OPTIONS
-------

  -debug   <level>   # debug level (default: %d. min: 0, max: 3)
  -config  <config>  # path to config file (default: conf/%s.conf)
  -base    <path>    # base directory of the program files
  -address <addr>    # listen address, overrides .address in config (default: %s)

  Options apply to "serve" and "check" only.

`

// Opts is the options passed to Main() to control its behavior.
type Opts struct {
	ProgramName  string
	ProgramTitle string
	DebugLevel   int
	Address      string
	Usage        string
}

var ( // flags
	debugLevel int
	configFile string
	baseDir    string
	address    string
)

// Main is the main() for the server process.
func Main(opts *Opts) {
	if !system.Check() {
		crash("current platform (os + arch) is not supported.")
	}

	flag.Usage = func() {
		if opts.Usage == "" {
			fmt.Printf(usage, opts.ProgramTitle, hemi.Version, opts.ProgramName, opts.DebugLevel, opts.ProgramName, opts.Address)
		} else {
			fmt.Println(opts.Usage)
		}
	}
	flag.IntVar(&debugLevel, "debug", opts.DebugLevel, "")
	flag.StringVar(&configFile, "config", "", "")
	flag.StringVar(&baseDir, "base", "", "")
	flag.StringVar(&address, "address", "", "")
	action := "serve"
	if len(os.Args) > 1 && os.Args[1][0] != '-' {
		action = os.Args[1]
		flag.CommandLine.Parse(os.Args[2:])
	} else {
		flag.Parse()
	}

	switch action {
	case "help":
		flag.Usage()
	case "version":
		fmt.Println(hemi.Version)
	case "advise":
		system.Advise(10)
	case "serve", "check":
		hemi.SetDebugLevel(int32(debugLevel))

		if baseDir == "" {
			baseDir = system.ExeDir
		} else { // baseDir is specified.
			dir, err := filepath.Abs(baseDir)
			if err != nil {
				crash(err.Error())
			}
			baseDir = dir
		}
		baseDir = filepath.ToSlash(baseDir)
		hemi.SetBaseDir(baseDir)

		configText, err := loadConfig(opts)
		if err != nil {
			crash(err.Error())
		}
		server, err := hemi.ServerFromText(configText)
		if err != nil {
			crash(err.Error())
		}
		if action == "check" { // dry run
			fmt.Println("PASS")
			return
		}
		serve(server)
	default:
		fmt.Fprintf(os.Stderr, "unknown action: %s\n", action)
		flag.Usage()
		os.Exit(hemi.CodeUse)
	}
}

// loadConfig returns the config text. Program defaults come first so the config file can override them,
// and -address comes last so it overrides the config file.
func loadConfig(opts *Opts) (string, error) {
	text := ""
	if opts.Address != "" {
		text += ".address = " + strconv.Quote(opts.Address) + "\n"
	}
	file := configFile
	if file == "" {
		file = baseDir + "/conf/" + opts.ProgramName + ".conf"
	} else if !filepath.IsAbs(file) {
		file = baseDir + "/" + file
	}
	data, err := os.ReadFile(file)
	if err == nil {
		text += string(data) + "\n"
	} else if configFile != "" || !errors.Is(err, os.ErrNotExist) { // the default config file is optional
		return "", err
	}
	if address != "" {
		text += ".address = " + strconv.Quote(address) + "\n"
	}
	return text, nil
}

func serve(server *hemi.HTTPServer) {
	if err := server.Open(); err != nil {
		hemi.EnvExitln(err.Error())
	}
	if hemi.DebugLevel() >= 1 {
		hemi.Printf("[process] pid=%d address=%s\n", os.Getpid(), server.Address())
	}
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() { // runner
		sig := <-signals
		if hemi.DebugLevel() >= 1 {
			hemi.Printf("[process] got signal %s, shutting down\n", sig)
		}
		server.Shutdown()
	}()
	if err := server.Serve(); err != nil {
		crash(err.Error())
	}
}

func crash(s string) {
	fmt.Fprintln(os.Stderr, s)
	os.Exit(hemi.CodeEnv)
}
