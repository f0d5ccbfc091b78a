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
	"testing"

	"github.com/stretchr/testify/require"
)

// parseDepfile feeds input to a fresh DepfileParser, appending the
// terminating NUL byte the lexer requires (real reads get it from
// RealDiskInterface.ReadFile).
func parseDepfile(input string) (*DepfileParser, error) {
	parser := NewDepfileParser(DepfileParserOptions{})
	buf := make([]byte, len(input)+1)
	copy(buf, input)
	err := parser.Parse(buf)
	return parser, err
}

func TestDepfileParser_Basic(t *testing.T) {
	p, err := parseDepfile("build/ninja.o: ninja.cc ninja.h eval_env.h manifest_parser.h\n")
	require.NoError(t, err)
	require.Equal(t, []string{"build/ninja.o"}, p.Outs())
	require.Len(t, p.Ins(), 4)
}

func TestDepfileParser_EarlyNewlineAndWhitespace(t *testing.T) {
	_, err := parseDepfile(" \\\n  out: in\n")
	require.NoError(t, err)
}

func TestDepfileParser_Continuation(t *testing.T) {
	p, err := parseDepfile("foo.o: \\\n  bar.h baz.h\n")
	require.NoError(t, err)
	require.Equal(t, []string{"foo.o"}, p.Outs())
	require.Equal(t, []string{"bar.h", "baz.h"}, p.Ins())
}

func TestDepfileParser_CarriageReturnContinuation(t *testing.T) {
	p, err := parseDepfile("foo.o: \\\r\n  bar.h baz.h\r\n")
	require.NoError(t, err)
	require.Equal(t, []string{"foo.o"}, p.Outs())
	require.Equal(t, []string{"bar.h", "baz.h"}, p.Ins())
}

func TestDepfileParser_BackSlashes(t *testing.T) {
	p, err := parseDepfile(
		"Project\\Dir\\Build\\Release8\\Foo\\Foo.res : \\\n" +
			"  Dir\\Library\\Foo.rc \\\n" +
			"  Dir\\Library\\Version\\Bar.h \\\n" +
			"  Dir\\Library\\Foo.ico \\\n" +
			"  Project\\Thing\\Bar.tlb \\\n")
	require.NoError(t, err)
	require.Equal(t, []string{`Project\Dir\Build\Release8\Foo\Foo.res`}, p.Outs())
	require.Len(t, p.Ins(), 4)
}

func TestDepfileParser_Spaces(t *testing.T) {
	p, err := parseDepfile(`a\ bc\ def:   a\ b c d`)
	require.NoError(t, err)
	require.Equal(t, []string{"a bc def"}, p.Outs())
	require.Equal(t, []string{"a b", "c", "d"}, p.Ins())
}

func TestDepfileParser_MultipleBackslashes(t *testing.T) {
	// Successive 2N+1 backslashes followed by space (' ') are replaced by
	// N >= 0 backslashes and the space. A single backslash before a hash
	// sign is removed. Other backslashes remain untouched (including 2N
	// backslashes followed by space).
	p, err := parseDepfile("a\\ b\\#c.h: \\\\\\\\\\  \\\\\\\\ \\\\share\\info\\\\#1")
	require.NoError(t, err)
	require.Equal(t, []string{"a b#c.h"}, p.Outs())
	require.Equal(t, []string{`\\ `, `\\\\`, `\\share\info\#1`}, p.Ins())
}

func TestDepfileParser_Escapes(t *testing.T) {
	// Put backslashes before a variety of characters, see which ones make
	// it through.
	p, err := parseDepfile(`\!\@\#$$\%\^\&\[\]\\:`)
	require.NoError(t, err)
	require.Equal(t, []string{`\!\@#$\%\^\&\[\]\\`}, p.Outs())
	require.Empty(t, p.Ins())
}

func TestDepfileParser_EscapedColons(t *testing.T) {
	// Depfiles produced on Windows by Clang, GCC pre-10, and GCC 10.
	p, err := parseDepfile("c\\:\\gcc\\x86_64-w64-mingw32\\include\\stddef.o: \\\n" +
		" c:\\gcc\\x86_64-w64-mingw32\\include\\stddef.h \n")
	require.NoError(t, err)
	require.Equal(t, []string{`c:\gcc\x86_64-w64-mingw32\include\stddef.o`}, p.Outs())
	require.Equal(t, []string{`c:\gcc\x86_64-w64-mingw32\include\stddef.h`}, p.Ins())
}

func TestDepfileParser_EscapedTargetColon(t *testing.T) {
	p, err := parseDepfile("foo1\\: x\n" + "foo1\\:\n" + "foo1\\:\r\n" + "foo1\\:\t\n" + "foo1\\:")
	require.NoError(t, err)
	require.Equal(t, []string{`foo1\`}, p.Outs())
	require.Equal(t, []string{"x"}, p.Ins())
}

func TestDepfileParser_SpecialChars(t *testing.T) {
	// See filenames like istreambuf.iterator_op!= in
	// https://github.com/google/libcxx/tree/master/test/iterators/stream.iterators/istreambuf.iterator/
	p, err := parseDepfile("C:/Program\\ Files\\ (x86)/Microsoft\\ crtdefs.h: \\\n" +
		" en@quot.header~ t+t-x!=1 \\\n" +
		" openldap/slapd.d/cn=config/cn=schema/cn={0}core.ldif\\\n" +
		" Fu\303\244ball\\\n" +
		" a[1]b@2%c")
	require.NoError(t, err)
	require.Equal(t, []string{"C:/Program Files (x86)/Microsoft crtdefs.h"}, p.Outs())
	require.Equal(t, []string{
		"en@quot.header~",
		"t+t-x!=1",
		"openldap/slapd.d/cn=config/cn=schema/cn={0}core.ldif",
		"Fu\303\244ball",
		"a[1]b@2%c",
	}, p.Ins())
}

func TestDepfileParser_UnifyMultipleOutputs(t *testing.T) {
	// Multiple duplicate targets are properly unified.
	p, err := parseDepfile("foo foo: x y z")
	require.NoError(t, err)
	require.Equal(t, []string{"foo"}, p.Outs())
	require.Equal(t, []string{"x", "y", "z"}, p.Ins())
}

func TestDepfileParser_MultipleDifferentOutputs(t *testing.T) {
	p, err := parseDepfile("foo bar: x y z")
	require.NoError(t, err)
	require.Equal(t, []string{"foo", "bar"}, p.Outs())
	require.Equal(t, []string{"x", "y", "z"}, p.Ins())
}

func TestDepfileParser_MultipleEmptyRules(t *testing.T) {
	p, err := parseDepfile("foo: x\n" + "foo: \n" + "foo:\n")
	require.NoError(t, err)
	require.Equal(t, []string{"foo"}, p.Outs())
	require.Equal(t, []string{"x"}, p.Ins())
}

func TestDepfileParser_UnifyMultipleRulesLF(t *testing.T) {
	p, err := parseDepfile("foo: x\n" + "foo: y\n" + "foo \\\n" + "foo: z\n")
	require.NoError(t, err)
	require.Equal(t, []string{"foo"}, p.Outs())
	require.Equal(t, []string{"x", "y", "z"}, p.Ins())
}

func TestDepfileParser_UnifyMultipleRulesCRLF(t *testing.T) {
	p, err := parseDepfile("foo: x\r\n" + "foo: y\r\n" + "foo \\\r\n" + "foo: z\r\n")
	require.NoError(t, err)
	require.Equal(t, []string{"foo"}, p.Outs())
	require.Equal(t, []string{"x", "y", "z"}, p.Ins())
}

func TestDepfileParser_UnifyMixedRulesLF(t *testing.T) {
	p, err := parseDepfile("foo: x\\\n" + "     y\n" + "foo \\\n" + "foo: z\n")
	require.NoError(t, err)
	require.Equal(t, []string{"foo"}, p.Outs())
	require.Equal(t, []string{"x", "y", "z"}, p.Ins())
}

func TestDepfileParser_UnifyMixedRulesCRLF(t *testing.T) {
	p, err := parseDepfile("foo: x\\\r\n" + "     y\r\n" + "foo \\\r\n" + "foo: z\r\n")
	require.NoError(t, err)
	require.Equal(t, []string{"foo"}, p.Outs())
	require.Equal(t, []string{"x", "y", "z"}, p.Ins())
}

func TestDepfileParser_IndentedRulesLF(t *testing.T) {
	p, err := parseDepfile(" foo: x\n" + " foo: y\n" + " foo: z\n")
	require.NoError(t, err)
	require.Equal(t, []string{"foo"}, p.Outs())
	require.Equal(t, []string{"x", "y", "z"}, p.Ins())
}

func TestDepfileParser_IndentedRulesCRLF(t *testing.T) {
	p, err := parseDepfile(" foo: x\r\n" + " foo: y\r\n" + " foo: z\r\n")
	require.NoError(t, err)
	require.Equal(t, []string{"foo"}, p.Outs())
	require.Equal(t, []string{"x", "y", "z"}, p.Ins())
}

func TestDepfileParser_TolerateMP(t *testing.T) {
	p, err := parseDepfile("foo: x y z\n" + "x:\n" + "y:\n" + "z:\n")
	require.NoError(t, err)
	require.Equal(t, []string{"foo"}, p.Outs())
	require.Equal(t, []string{"x", "y", "z"}, p.Ins())
}

func TestDepfileParser_MultipleRulesTolerateMP(t *testing.T) {
	p, err := parseDepfile("foo: x\n" + "x:\n" + "foo: y\n" + "y:\n" + "foo: z\n" + "z:\n")
	require.NoError(t, err)
	require.Equal(t, []string{"foo"}, p.Outs())
	require.Equal(t, []string{"x", "y", "z"}, p.Ins())
}

func TestDepfileParser_MultipleRulesDifferentOutputs(t *testing.T) {
	// Multiple different outputs are accepted when spread across rules.
	p, err := parseDepfile("foo: x y\n" + "bar: y z\n")
	require.NoError(t, err)
	require.Equal(t, []string{"foo", "bar"}, p.Outs())
	require.Equal(t, []string{"x", "y", "z"}, p.Ins())
}

func TestDepfileParser_BuggyMP(t *testing.T) {
	_, err := parseDepfile("foo: x y z\n" + "x: alsoin\n" + "y:\n" + "z:\n")
	require.Error(t, err)
	require.Contains(t, err.Error(), "inputs may not also have inputs")
}
