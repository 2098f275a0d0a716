/*
   monitor: interactive debug REPL for the hart/bus aggregate.

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

// Package monitor is an interactive debug console: a liner.Liner prompt
// feeding a prefix-matched dispatch table, built around the Machine
// interface so the REPL stays decoupled from the hart/bus concrete types.
package monitor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/rcornwell/rv32emu/internal/disasm"
)

// Machine is everything the monitor needs from the hart/bus aggregate; the
// CLI entry point supplies the concrete implementation.
type Machine interface {
	Step()
	PC() uint32
	SetPC(pc uint32)
	Reg(i int) uint32
	SetReg(i int, v uint32)
	ReadMem(addr uint32, width int) (uint32, error)
	WriteMem(addr uint32, width int, val uint32) error
	LastTrace() string
	SetTrace(enabled bool)
	Halted() bool
}

type cmdLine struct {
	line string
	pos  int
}

type cmd struct {
	name    string
	min     int
	process func(*cmdLine, Machine) (bool, error)
}

var cmdList = []cmd{
	{name: "step", min: 1, process: cmdStep},
	{name: "examine", min: 1, process: cmdExamine},
	{name: "deposit", min: 1, process: cmdDeposit},
	{name: "registers", min: 1, process: cmdRegisters},
	{name: "trace", min: 1, process: cmdTrace},
	{name: "go", min: 1, process: cmdGo},
	{name: "continue", min: 1, process: cmdGo},
	{name: "quit", min: 1, process: cmdQuit},
}

// Run starts the REPL against m, reading from the terminal until the user
// quits, aborts the prompt (Ctrl-C) or input ends (Ctrl-D).
func Run(m Machine) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(l string) []string { return completeCmd(l) })

	for {
		input, err := line.Prompt("rv32emu> ")
		if err == nil {
			line.AppendHistory(input)
			quit, perr := processCommand(input, m)
			if perr != nil {
				fmt.Println("Error: " + perr.Error())
			}
			if quit {
				return
			}
			continue
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		fmt.Println("error reading line: " + err.Error())
		return
	}
}

func processCommand(commandLine string, m Machine) (bool, error) {
	line := &cmdLine{line: commandLine}
	name := line.getWord()
	if name == "" {
		return false, nil
	}
	match := matchList(name)
	switch len(match) {
	case 0:
		return false, errors.New("command not found: " + name)
	case 1:
		return match[0].process(line, m)
	default:
		return false, errors.New("ambiguous command: " + name)
	}
}

func completeCmd(commandLine string) []string {
	line := &cmdLine{line: commandLine}
	name := line.getWord()
	match := matchList(name)
	names := make([]string, len(match))
	for i, c := range match {
		names[i] = c.name
	}
	return names
}

func matchList(name string) []cmd {
	if name == "" {
		return nil
	}
	var out []cmd
	for _, c := range cmdList {
		if len(name) > len(c.name) {
			continue
		}
		if len(name) < c.min {
			continue
		}
		if strings.EqualFold(c.name[:len(name)], name) {
			out = append(out, c)
		}
	}
	return out
}

func (l *cmdLine) skipSpace() {
	for l.pos < len(l.line) && l.line[l.pos] == ' ' {
		l.pos++
	}
}

func (l *cmdLine) isEOL() bool {
	return l.pos >= len(l.line)
}

func (l *cmdLine) getWord() string {
	l.skipSpace()
	start := l.pos
	for l.pos < len(l.line) && l.line[l.pos] != ' ' {
		l.pos++
	}
	return l.line[start:l.pos]
}

func parseUint32(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hex value %q", s)
	}
	return uint32(v), nil
}

func cmdStep(l *cmdLine, m Machine) (bool, error) {
	count := 1
	if w := l.getWord(); w != "" {
		n, err := strconv.Atoi(w)
		if err != nil {
			return false, err
		}
		count = n
	}
	for i := 0; i < count && !m.Halted(); i++ {
		m.Step()
		if t := m.LastTrace(); t != "" {
			fmt.Println(t)
		}
	}
	return false, nil
}

func cmdGo(l *cmdLine, m Machine) (bool, error) {
	for !m.Halted() {
		m.Step()
	}
	return false, nil
}

func cmdExamine(l *cmdLine, m Machine) (bool, error) {
	addrWord := l.getWord()
	if addrWord == "" {
		fmt.Printf("pc=%#08x\n", m.PC())
		return false, nil
	}
	addr, err := parseUint32(addrWord)
	if err != nil {
		return false, err
	}
	count := 1
	if w := l.getWord(); w != "" {
		n, err := strconv.Atoi(w)
		if err != nil {
			return false, err
		}
		count = n
	}
	for i := 0; i < count; i++ {
		a := addr + uint32(i*4)
		v, err := m.ReadMem(a, 4)
		if err != nil {
			return false, err
		}
		fmt.Printf("%#08x: %#08x  %s\n", a, v, disasm.Format(a, v))
	}
	return false, nil
}

func cmdDeposit(l *cmdLine, m Machine) (bool, error) {
	addrWord := l.getWord()
	valWord := l.getWord()
	if addrWord == "" || valWord == "" {
		return false, errors.New("deposit requires an address and a value")
	}
	addr, err := parseUint32(addrWord)
	if err != nil {
		return false, err
	}
	val, err := parseUint32(valWord)
	if err != nil {
		return false, err
	}
	return false, m.WriteMem(addr, 4, val)
}

func cmdRegisters(l *cmdLine, m Machine) (bool, error) {
	fmt.Printf("pc=%#08x\n", m.PC())
	for i := 0; i < 32; i++ {
		fmt.Printf("x%-2d=%#08x ", i, m.Reg(i))
		if i%4 == 3 {
			fmt.Println()
		}
	}
	return false, nil
}

func cmdTrace(l *cmdLine, m Machine) (bool, error) {
	switch strings.ToLower(l.getWord()) {
	case "on", "":
		m.SetTrace(true)
	case "off":
		m.SetTrace(false)
	default:
		return false, errors.New("trace expects on or off")
	}
	return false, nil
}

func cmdQuit(l *cmdLine, m Machine) (bool, error) {
	return true, nil
}
