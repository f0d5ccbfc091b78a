// Copyright 2013 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package anvil

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
)

// LineType distinguishes a status line that can be elided to fit the
// terminal width from one that must be printed in full.
type LineType int

const (
	FULL LineType = iota
	ELIDE
)

// LinePrinter prints lines of text, overprinting the previous line in
// place when standard output is a smart terminal.
type LinePrinter struct {
	smartTerminal bool
	supportsColorFlag bool

	haveBlankLine bool
	consoleLocked bool

	lineBuffer   string
	lineType     LineType
	outputBuffer string

	initialized bool
}

func (l *LinePrinter) ensureInit() {
	if l.initialized {
		return
	}
	l.initialized = true
	l.haveBlankLine = true

	term := os.Getenv("TERM")
	l.smartTerminal = isatty.IsTerminal(os.Stdout.Fd()) && term != "dumb"

	l.supportsColorFlag = l.smartTerminal
	if !l.supportsColorFlag {
		if force := os.Getenv("CLICOLOR_FORCE"); force != "" && force != "0" {
			l.supportsColorFlag = true
		}
	}
}

// IsSmartTerminal reports whether stdout is a terminal that supports
// overprinting the current line.
func (l *LinePrinter) IsSmartTerminal() bool {
	l.ensureInit()
	return l.smartTerminal
}

// SetSmartTerminal forces smart-terminal behavior on or off, e.g. to
// disable it in verbose mode even when stdout is a tty.
func (l *LinePrinter) SetSmartTerminal(smart bool) {
	l.ensureInit()
	l.smartTerminal = smart
}

// SupportsColor reports whether ANSI color escapes are safe to emit.
func (l *LinePrinter) SupportsColor() bool {
	l.ensureInit()
	return l.supportsColorFlag
}

func terminalWidth() int {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 {
		return 0
	}
	return int(ws.Col)
}

// Print prints toPrint as the current status line, overprinting the
// previous one and eliding it to the terminal width if type is ELIDE and a
// smart terminal is in use. While the console is locked the line is
// buffered instead, to be flushed by SetConsoleLocked(false).
func (l *LinePrinter) Print(toPrint string, lineType LineType) {
	l.ensureInit()
	if l.consoleLocked {
		l.lineBuffer = toPrint
		l.lineType = lineType
		return
	}

	if l.smartTerminal {
		fmt.Print("\r")
	}

	if l.smartTerminal && lineType == ELIDE {
		if width := terminalWidth(); width > 0 {
			toPrint = ElideMiddle(toPrint, width)
		}
		fmt.Print(toPrint)
		fmt.Print("\x1B[K")
		l.haveBlankLine = false
	} else {
		fmt.Println(toPrint)
	}
}

func (l *LinePrinter) printOrBuffer(data string) {
	if l.consoleLocked {
		l.outputBuffer += data
	} else {
		os.Stdout.WriteString(data)
	}
}

// PrintOnNewLine flushes any buffered status line and prints toPrint
// starting on a fresh line, used for explanations and command output that
// must not be clobbered by the next status update.
func (l *LinePrinter) PrintOnNewLine(toPrint string) {
	l.ensureInit()
	if l.consoleLocked && l.lineBuffer != "" {
		l.outputBuffer += l.lineBuffer + "\n"
		l.lineBuffer = ""
	}
	if !l.haveBlankLine {
		l.printOrBuffer("\n")
	}
	if toPrint != "" {
		l.printOrBuffer(toPrint)
	}
	l.haveBlankLine = toPrint == "" || strings.HasSuffix(toPrint, "\n")
}

// SetConsoleLocked buffers Print/PrintOnNewLine output instead of writing
// it immediately, for the duration a console-pool edge owns the terminal.
// Unlocking flushes whatever was buffered.
func (l *LinePrinter) SetConsoleLocked(locked bool) {
	l.ensureInit()
	if locked == l.consoleLocked {
		return
	}

	if locked {
		l.PrintOnNewLine("")
	}

	l.consoleLocked = locked

	if !locked {
		l.PrintOnNewLine(l.outputBuffer)
		if l.lineBuffer != "" {
			l.Print(l.lineBuffer, l.lineType)
		}
		l.outputBuffer = ""
		l.lineBuffer = ""
	}
}

