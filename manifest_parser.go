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

import "os"

// ManifestParserConcurrency selects how subninja files are processed.
type ManifestParserConcurrency int32

const (
	// ParseManifestSerial processes subninja files as soon as they're
	// encountered, in the order they appear.
	ParseManifestSerial ManifestParserConcurrency = iota
	// ParseManifestConcurrent reads subninja files on background goroutines
	// as they're encountered, then applies them to the state once the
	// enclosing file is done parsing. This reduces wall-clock time on large
	// manifests at the cost of needing immutable-until-merge parser state.
	ParseManifestConcurrent
)

// ParseManifestOpts controls ManifestParser behavior. The zero value warns
// (rather than errors) on duplicate build edges and phony cycles, and
// parses subninja files serially.
type ParseManifestOpts struct {
	ErrOnDupeEdge   bool
	ErrOnPhonyCycle bool
	// Quiet suppresses the warnings ErrOnDupeEdge/ErrOnPhonyCycle would
	// otherwise print when tolerating the condition instead of erroring.
	Quiet       bool
	Concurrency ManifestParserConcurrency
}

// ManifestParserOptions is the name callers outside this package use to
// build a ParseManifestOpts; the two are the same type.
type ManifestParserOptions = ParseManifestOpts

// subninja carries the result of asynchronously reading a subninja file
// back to the parser that enqueued it.
type subninja struct {
	filename string
	input    []byte
	err      error
	ls       lexerState
}

// readSubninjaAsync reads filename and reports the result on out. It never
// touches parser state, so it's safe to run on its own goroutine while the
// enclosing file keeps parsing.
func readSubninjaAsync(fr FileReader, filename string, out chan<- subninja, ls lexerState) {
	input, err := readManifestFile(fr, filename)
	out <- subninja{filename: filename, input: input, err: err, ls: ls}
}

// readManifestFile adapts FileReader.ReadFile's (contents, status, error)
// result to the (bytes, error) shape the parser's control flow wants. The
// lexer requires a trailing NUL byte to detect end-of-buffer; this appends
// one since ReadFile's contract doesn't include it.
func readManifestFile(fr FileReader, path string) ([]byte, error) {
	contents, status, err := fr.ReadFile(path)
	if status == ReadNotFound {
		return nil, os.ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	buf := make([]byte, len(contents)+1)
	copy(buf, contents)
	return buf, nil
}

// manifestParser is implemented by manifestParserSerial and
// manifestParserConcurrent; ManifestParser dispatches to whichever backend
// matches the requested concurrency.
type manifestParser interface {
	parse(filename string, input []byte) error
}

// ManifestParser parses .ninja files into a State, choosing a serial or
// concurrent backend based on options.Concurrency.
type ManifestParser struct {
	impl manifestParser
	fr   FileReader
}

// NewManifestParser returns a parser that will populate state as it reads
// build files through fr. A nil fr defaults to the real filesystem.
func NewManifestParser(state *State, fr FileReader, opts ParseManifestOpts) *ManifestParser {
	if fr == nil {
		fr = NewRealDiskInterface()
	}
	if opts.Concurrency == ParseManifestConcurrent {
		return &ManifestParser{fr: fr, impl: &manifestParserConcurrent{
			fr:      fr,
			options: opts,
			state:   state,
			env:     state.Bindings,
		}}
	}
	return &ManifestParser{fr: fr, impl: &manifestParserSerial{
		fr:      fr,
		options: opts,
		state:   state,
		env:     state.Bindings,
	}}
}

// Load reads filename and parses it, populating the State passed to
// NewManifestParser.
func (m *ManifestParser) Load(filename string) error {
	input, err := readManifestFile(m.fr, filename)
	if err != nil {
		return err
	}
	return m.Parse(filename, input)
}

// Parse parses input, which was read from filename, populating the State
// passed to NewManifestParser. Callers that already have the manifest's
// bytes (e.g. after a top-level ReadFile call used for error reporting)
// should call this directly instead of Load.
func (m *ManifestParser) Parse(filename string, input []byte) error {
	return m.impl.parse(filename, input)
}

// ParseTest feeds input directly to the parser, bypassing the filesystem;
// used by tests and perftest binaries that build manifests inline. The
// lexer requires a trailing NUL byte, which real reads get from
// RealDiskInterface.ReadFile and which this appends on behalf of callers
// that build input by hand.
func (m *ManifestParser) ParseTest(input string, errOut *string) bool {
	buf := make([]byte, len(input)+1)
	copy(buf, input)
	if err := m.impl.parse("input", buf); err != nil {
		*errOut = err.Error()
		return false
	}
	return true
}
