// Copyright 2011 Google Inc. All Rights Reserved.
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
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fatal logs a fatal message and terminates the process.
func Fatal(msg string, a ...interface{}) {
	logrus.Errorf("fatal: "+msg, a...)
	os.Exit(1)
}

// Warning logs a warning message.
func Warning(msg string, a ...interface{}) {
	logrus.Warnf(msg, a...)
}

// Error logs an error message.
func Error(msg string, a ...interface{}) {
	logrus.Errorf(msg, a...)
}

// Info logs an informational message.
func Info(msg string, a ...interface{}) {
	logrus.Infof(msg, a...)
}

func isPathSeparator(c byte) bool {
	return c == '/'
}

// CanonicalizePath collapses "./", "..", and duplicate separators out of
// path, e.g. "foo/../bar.h" becomes "bar.h". It discards the slash-bit
// mask; use CanonicalizePathBits to keep it.
func CanonicalizePath(path string) string {
	p, _ := CanonicalizePathBits(path)
	return p
}

// CanonicalizePathBits canonicalizes path like CanonicalizePath, and also
// returns a bitmask recording, from the lowest bit up, which separators in
// the result were backslashes in the input (relevant on Windows, where
// both separators are accepted but the canonical form uses '/').
//
// This is a direct, allocating translation of the original in-place
// pointer-walking algorithm; the hot path it guards is manifest parsing,
// not steady-state build execution, so the extra allocation is not worth
// chasing.
func CanonicalizePathBits(path string) (string, uint64) {
	if len(path) == 0 {
		return path, 0
	}

	const maxPathComponents = 60
	var components [maxPathComponents]int
	componentCount := 0

	src := 0
	dst := make([]byte, 0, len(path)+1)

	if isPathSeparator(path[src]) {
		dst = append(dst, '/')
		src++
	}

	for src < len(path) {
		if path[src] == '.' {
			if src+1 == len(path) || isPathSeparator(path[src+1]) {
				src += 2
				continue
			} else if src+1 < len(path) && path[src+1] == '.' && (src+2 == len(path) || isPathSeparator(path[src+2])) {
				if componentCount > 0 {
					dst = dst[:components[componentCount-1]]
					src += 3
					componentCount--
				} else {
					dst = append(dst, path[src], path[src+1])
					if src+2 < len(path) {
						dst = append(dst, path[src+2])
					}
					src += 3
				}
				continue
			}
		}

		if isPathSeparator(path[src]) {
			src++
			continue
		}

		if componentCount == maxPathComponents {
			panic("anvil: path has too many components: " + path)
		}
		components[componentCount] = len(dst)
		componentCount++

		for src < len(path) && !isPathSeparator(path[src]) {
			dst = append(dst, path[src])
			src++
		}
		if src < len(path) {
			dst = append(dst, '/')
			src++
		}
	}

	if len(dst) == 0 {
		return ".", 0
	}
	// Drop a trailing separator left over from the loop above.
	if dst[len(dst)-1] == '/' {
		dst = dst[:len(dst)-1]
	}

	var bits uint64
	var bitsMask uint64 = 1
	for i := range dst {
		switch dst[i] {
		case '\\':
			bits |= bitsMask
			dst[i] = '/'
			fallthrough
		case '/':
			bitsMask <<= 1
		}
	}

	return string(dst), bits
}

func isKnownShellSafeCharacter(c byte) bool {
	if c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' {
		return true
	}
	switch c {
	case '_', '+', '-', '.', '/':
		return true
	}
	return false
}

func stringNeedsShellEscaping(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isKnownShellSafeCharacter(s[i]) {
			return true
		}
	}
	return false
}

// getShellEscapedString single-quotes input for a POSIX shell, unless it's
// already known to contain no characters that need it.
func getShellEscapedString(input string) string {
	if !stringNeedsShellEscaping(input) {
		return input
	}
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, r := range input {
		if r == '\'' {
			sb.WriteString(`'\''`)
		} else {
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}

// SpellcheckString returns the closest match to text among words, or "" if
// nothing is within editing distance 3.
func SpellcheckString(text string, words ...string) string {
	const allowReplacements = true
	const maxValidEditDistance = 3

	minDistance := maxValidEditDistance + 1
	result := ""
	for _, w := range words {
		distance := editDistance(w, text, allowReplacements, maxValidEditDistance)
		if distance < minDistance {
			minDistance = distance
			result = w
		}
	}
	return result
}

func islatinalpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// StripAnsiEscapeCodes removes ANSI CSI escape sequences from in, used when
// writing subprocess output to a non-terminal.
func StripAnsiEscapeCodes(in string) string {
	var out strings.Builder
	out.Grow(len(in))
	for i := 0; i < len(in); i++ {
		if in[i] != '\033' {
			out.WriteByte(in[i])
			continue
		}
		if i+1 >= len(in) || in[i+1] != '[' {
			continue
		}
		i += 2
		for i < len(in) && !islatinalpha(in[i]) {
			i++
		}
	}
	return out.String()
}

// GetProcessorCount returns the number of logical processors, used as the
// default -j parallelism when none is given.
func GetProcessorCount() int {
	return runtime.NumCPU()
}

// GetLoadAverage returns the 1-minute load average, or a negative value if
// it can't be determined (e.g. unsupported OS).
func GetLoadAverage() float64 {
	data, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return -1
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return -1
	}
	var load float64
	if _, err := fmt.Sscanf(fields[0], "%f", &load); err != nil {
		return -1
	}
	return load
}

// ElideMiddle elides str with "..." in the middle if it's longer than
// width, used to fit a status line's command text in the terminal.
func ElideMiddle(str string, width int) string {
	switch width {
	case 0:
		return ""
	case 1:
		return "."
	case 2:
		return ".."
	case 3:
		return "..."
	}
	if len(str) <= width {
		return str
	}
	const margin = 3
	elideSize := (width - margin) / 2
	return str[:elideSize] + "..." + str[len(str)-elideSize:]
}

// Truncate truncates the file at path to size bytes.
func Truncate(path string, size int64) error {
	return os.Truncate(path, size)
}
