// Copyright 2015 Google Inc. All Rights Reserved.
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

import "strings"

// kDepsPrefixEnglish is cl.exe's default /showIncludes prefix when running
// under an English locale; a build may override it via msvc_deps_prefix.
const kDepsPrefixEnglish = "Note: including file: "

// CLParser parses the output of Visual Studio's cl.exe, which emits
// include information on stderr in a distinctive format when built with
// /showIncludes.
type CLParser struct {
	includes map[string]struct{}
}

// NewCLParser returns an empty parser.
func NewCLParser() *CLParser {
	return &CLParser{includes: map[string]struct{}{}}
}

// Includes returns the set of non-system headers discovered by Parse.
func (c *CLParser) Includes() map[string]struct{} {
	return c.includes
}

// filterShowIncludes parses a line of cl.exe output and extracts
// /showIncludes info. Returns a nonempty string if a dependency was found.
func filterShowIncludes(line, depsPrefix string) string {
	prefix := depsPrefix
	if prefix == "" {
		prefix = kDepsPrefixEnglish
	}
	if !strings.HasPrefix(line, prefix) {
		return ""
	}
	return strings.TrimLeft(line[len(prefix):], " ")
}

// isSystemInclude reports whether a mentioned include path looks like a
// system path. Filtering these out reduces dependency information
// considerably.
func isSystemInclude(path string) bool {
	path = strings.ToLower(path)
	return strings.Contains(path, "program files") || strings.Contains(path, "microsoft visual studio")
}

// filterInputFilename reports whether line looks like cl.exe echoing the
// name of the file it's compiling, rather than an include or diagnostic.
// This is a heuristic but it appears to be the best we can do.
func filterInputFilename(line string) bool {
	line = strings.ToLower(line)
	for _, ext := range []string{".c", ".cc", ".cxx", ".cpp"} {
		if strings.HasSuffix(line, ext) {
			return true
		}
	}
	return false
}

// Parse processes the full output of a cl.exe invocation, recording the
// headers it mentions and returning the text that should still be printed
// (i.e. output with the /showIncludes and echoed-filename lines removed).
func (c *CLParser) Parse(output, depsPrefix string) (string, error) {
	defer metricRecord("CLParser::Parse")()

	var filtered strings.Builder
	seenShowIncludes := false

	lines := strings.Split(output, "\n")
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		// When output ends with "\n", strings.Split yields a final empty
		// segment; skip it so we don't synthesize a spurious blank line of
		// filtered output.
		if i == len(lines)-1 && line == "" {
			continue
		}

		if include := filterShowIncludes(line, depsPrefix); include != "" {
			seenShowIncludes = true
			normalized, _ := CanonicalizePathBits(include)
			if !isSystemInclude(normalized) {
				c.includes[normalized] = struct{}{}
			}
		} else if !seenShowIncludes && filterInputFilename(line) {
			// Drop it: cl.exe echoes the name of the file it's compiling.
		} else {
			filtered.WriteString(line)
			filtered.WriteByte('\n')
		}
	}

	return filtered.String(), nil
}
