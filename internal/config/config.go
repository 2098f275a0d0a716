/*
   config: emulator configuration file parser.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

// Package config reads a small option-line configuration file: one
// `key=value` setting per line, '#' starts a comment that runs to end of
// line, blank lines are ignored. This emulator has a fixed, small settings
// surface, so each recognized key is handled directly by Load rather than
// through a pluggable per-section registry.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Config holds the settings a configuration file (or equivalent CLI flags)
// can supply. Zero values mean "use the built-in default".
type Config struct {
	RAMSize  uint32 // bytes
	DiskPath string
	Trace    bool
	UARTMode string // "raw" (default) or "passthrough"
}

// Load reads a configuration file. A missing RAMSize/DiskPath/UARTMode
// leaves the corresponding Config field at its zero value so CLI flags can
// supply it instead.
func Load(name string) (*Config, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer file.Close()

	cfg := &Config{}
	reader := bufio.NewReader(file)
	lineNumber := 0
	for {
		raw, err := reader.ReadString('\n')
		lineNumber++
		if len(raw) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("config: %w", err)
		}
		if perr := cfg.parseLine(raw, lineNumber); perr != nil {
			return nil, perr
		}
		if err != nil {
			break
		}
	}
	return cfg, nil
}

func (cfg *Config) parseLine(raw string, lineNumber int) error {
	line := raw
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return fmt.Errorf("config: line %d: expected key=value", lineNumber)
	}
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	switch key {
	case "ramsize":
		size, err := ParseSize(value)
		if err != nil {
			return fmt.Errorf("config: line %d: %w", lineNumber, err)
		}
		cfg.RAMSize = size
	case "disk":
		cfg.DiskPath = value
	case "trace":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("config: line %d: invalid trace value %q", lineNumber, value)
		}
		cfg.Trace = b
	case "uart":
		cfg.UARTMode = value
	default:
		return fmt.Errorf("config: line %d: unknown option %q", lineNumber, key)
	}
	return nil
}

// ParseSize accepts a plain decimal byte count or a K/M-suffixed value
// (e.g. "64M"). It is exported so the CLI's -ram flag can share the same
// grammar as the config file's ramsize key.
func ParseSize(value string) (uint32, error) {
	mult := uint64(1)
	switch {
	case strings.HasSuffix(value, "K") || strings.HasSuffix(value, "k"):
		mult = 1024
		value = value[:len(value)-1]
	case strings.HasSuffix(value, "M") || strings.HasSuffix(value, "m"):
		mult = 1024 * 1024
		value = value[:len(value)-1]
	}
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", value)
	}
	total := n * mult
	if total > 0xffffffff {
		return 0, fmt.Errorf("size %q overflows 32 bits", value)
	}
	return uint32(total), nil
}
