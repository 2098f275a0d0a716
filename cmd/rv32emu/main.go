/*
   rv32emu - Main process.

   Copyright 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a copy
   of this software and associated documentation files (the "Software"), to deal
   in the Software without restriction, including without limitation the rights
   to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
   copies of the Software, and to permit persons to whom the Software is
   furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
   AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
   LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
   OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
   SOFTWARE.

*/

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/rv32emu/internal/config"
	"github.com/rcornwell/rv32emu/internal/console"
	"github.com/rcornwell/rv32emu/internal/logging"
	"github.com/rcornwell/rv32emu/internal/monitor"
)

const ramBase = 0x80000000

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optRAMSizeStr := getopt.StringLong("ram", 'r', "128M", "RAM size in bytes (accepts a K/M suffix)")
	optDisk := getopt.StringLong("disk", 'd', "disk_file", "Disk image path")
	optTrace := getopt.BoolLong("trace", 't', "Enable instruction trace")
	optMonitor := getopt.BoolLong("monitor", 'm', "Drop into the debug monitor instead of free-running")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logFile *os.File
	if *optLogFile != "" {
		logFile, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	logger := slog.New(logging.NewHandler(logFile, &slog.HandlerOptions{Level: programLevel}, *optTrace))
	slog.SetDefault(logger)

	args := getopt.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: rv32emu [options] <kernel-elf>")
		os.Exit(1)
	}
	kernelPath := args[0]

	ramSize, err := config.ParseSize(*optRAMSizeStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid -ram value: "+err.Error())
		os.Exit(1)
	}

	cfg := &config.Config{RAMSize: ramSize, DiskPath: *optDisk, Trace: *optTrace}
	if *optConfig != "" {
		loaded, err := config.Load(*optConfig)
		if err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
		if loaded.RAMSize != 0 {
			cfg.RAMSize = loaded.RAMSize
		}
		if loaded.DiskPath != "" {
			cfg.DiskPath = loaded.DiskPath
		}
		cfg.Trace = cfg.Trace || loaded.Trace
	}

	host, err := console.Open()
	if err != nil {
		logger.Error("console: " + err.Error())
		os.Exit(1)
	}
	defer host.Close()

	sys, err := NewSystem(cfg, ramBase, kernelPath, host)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	sys.SetTrace(cfg.Trace)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	if *optMonitor {
		monitor.Run(sys)
		close(done)
	} else {
		go func() {
			for !sys.Halted() {
				sys.Step()
			}
			close(done)
		}()
	}

	select {
	case <-sigChan:
		logger.Info("Got quit signal")
	case <-done:
		logger.Info("Guest halted")
	}
}
