// Copyright 2012 Google Inc. All Rights Reserved.
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

//go:build windows

package anvil

import (
	"fmt"
	"path/filepath"
	"strings"
)

// maxNormalizePathLen mirrors the historical MAX_PATH limit that bounded
// the include paths cl.exe would emit via /showIncludes.
const maxNormalizePathLen = 260

// IncludesNormalize rewrites the absolute or mixed-separator paths that
// cl.exe prints for /showIncludes into paths relative to a build directory,
// so the same dependency edges are produced regardless of where the build
// happens to run from.
type IncludesNormalize struct {
	relativeTo      string
	splitRelativeTo []string
}

// NewIncludesNormalize returns a normalizer producing paths relative to
// relativeTo.
func NewIncludesNormalize(relativeTo string) (*IncludesNormalize, error) {
	abs, err := normalizeAbsPath(relativeTo)
	if err != nil {
		return nil, fmt.Errorf("initializing IncludesNormalize: %w", err)
	}
	return &IncludesNormalize{
		relativeTo:      abs,
		splitRelativeTo: strings.Split(abs, "/"),
	}, nil
}

func isWinPathSeparator(c byte) bool {
	return c == '/' || c == '\\'
}

// sameDriveFast answers the same-drive question from the path text alone,
// without touching the filesystem, when both paths already carry a drive
// letter.
func sameDriveFast(a, b string) bool {
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	if !islatinalpha(a[0]) || !islatinalpha(b[0]) {
		return false
	}
	if lowerASCIIByte(a[0]) != lowerASCIIByte(b[0]) {
		return false
	}
	if a[1] != ':' || b[1] != ':' {
		return false
	}
	return isWinPathSeparator(a[2]) && isWinPathSeparator(b[2])
}

func lowerASCIIByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// sameDrive reports whether a and b resolve to the same Windows drive.
func sameDrive(a, b string) (bool, error) {
	if sameDriveFast(a, b) {
		return true, nil
	}
	aAbs, err := normalizeAbsPath(a)
	if err != nil {
		return false, err
	}
	bAbs, err := normalizeAbsPath(b)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(filepath.VolumeName(filepath.FromSlash(aAbs)), filepath.VolumeName(filepath.FromSlash(bAbs))), nil
}

// isFullPathName reports whether s already looks like the output of
// GetFullPathName: drive-letter rooted and free of "." or ".." components.
// This lets Normalize skip a syscall on the common case.
func isFullPathName(s string) bool {
	if len(s) < 3 || !islatinalpha(s[0]) || s[1] != ':' || !isWinPathSeparator(s[2]) {
		return false
	}
	for i := 2; i < len(s); i++ {
		if !isWinPathSeparator(s[i]) {
			continue
		}
		if i+1 < len(s) && s[i+1] == '.' && (i+2 >= len(s) || isWinPathSeparator(s[i+2])) {
			return false
		}
		if i+2 < len(s) && s[i+1] == '.' && s[i+2] == '.' && (i+3 >= len(s) || isWinPathSeparator(s[i+3])) {
			return false
		}
	}
	return true
}

// normalizeAbsPath resolves s to an absolute, forward-slash path.
func normalizeAbsPath(s string) (string, error) {
	if isFullPathName(s) {
		return strings.ReplaceAll(s, `\`, "/"), nil
	}
	if len(s) > maxNormalizePathLen {
		return "", fmt.Errorf("path too long")
	}
	abs, err := filepath.Abs(filepath.FromSlash(s))
	if err != nil {
		return "", fmt.Errorf("GetFullPathNameA(%s): %w", s, err)
	}
	abs = filepath.ToSlash(abs)
	if len(abs) > maxNormalizePathLen {
		return "", fmt.Errorf("path too long")
	}
	return abs, nil
}

// AbsPath is the package-level helper the original API exposed for
// resolving a single path without constructing a normalizer.
func AbsPath(s string) (string, error) {
	return normalizeAbsPath(s)
}

// relativize expresses path relative to startList, matching path components
// case-insensitively the way Windows path comparisons do.
func relativize(path string, startList []string) (string, error) {
	abs, err := normalizeAbsPath(path)
	if err != nil {
		return "", err
	}
	pathList := strings.Split(abs, "/")
	i := 0
	for i < len(startList) && i < len(pathList) && strings.EqualFold(startList[i], pathList[i]) {
		i++
	}
	rel := make([]string, 0, len(startList)-i+len(pathList)-i)
	for j := 0; j < len(startList)-i; j++ {
		rel = append(rel, "..")
	}
	rel = append(rel, pathList[i:]...)
	if len(rel) == 0 {
		return ".", nil
	}
	return strings.Join(rel, "/"), nil
}

// Relativize is the package-level equivalent used by callers that already
// have a split start path handy.
func Relativize(path string, startList []string) (string, error) {
	return relativize(path, startList)
}

// Normalize rewrites input into a path relative to the directory the
// normalizer was built with, or, if input resolves to a different drive,
// into an absolute forward-slash path.
func (n *IncludesNormalize) Normalize(input string) (string, error) {
	if len(input) > maxNormalizePathLen {
		return "", fmt.Errorf("path too long")
	}
	partiallyFixed := CanonicalizePath(input)
	absInput, err := normalizeAbsPath(partiallyFixed)
	if err != nil {
		return "", err
	}
	same, err := sameDrive(absInput, n.relativeTo)
	if err != nil {
		return "", err
	}
	if !same {
		return partiallyFixed, nil
	}
	return relativize(absInput, n.splitRelativeTo)
}
