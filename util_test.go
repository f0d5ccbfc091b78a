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

import "testing"

func TestCanonicalizePath_Samples(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"foo.h", "foo.h"},
		{"./foo.h", "foo.h"},
		{"./foo/./bar.h", "foo/bar.h"},
		{"./x/foo/../bar.h", "x/bar.h"},
		{"./x/foo/../../bar.h", "bar.h"},
		{"foo//bar", "foo/bar"},
		{"foo//.//..///bar", "bar"},
		{"./x/../foo/../../bar.h", "../bar.h"},
		{"foo/./.", "foo"},
		{"foo/bar/..", "foo"},
		{"foo/.hidden_bar", "foo/.hidden_bar"},
		{"/foo", "/foo"},
	}
	for _, c := range cases {
		if got := CanonicalizePath(c.in); got != c.want {
			t.Errorf("CanonicalizePath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCanonicalizePath_SlashBits(t *testing.T) {
	path, bits := CanonicalizePathBits(`foo\bar\baz.h`)
	if path != "foo/bar/baz.h" {
		t.Errorf("path = %q, want foo/bar/baz.h", path)
	}
	if bits == 0 {
		t.Error("expected at least one slash bit set for backslash-separated input")
	}
}

func TestSpellcheckString_Basics(t *testing.T) {
	if got, want := SpellcheckString("buidl", "build", "clean"), "build"; got != want {
		t.Errorf("SpellcheckString = %q, want %q", got, want)
	}
	if got := SpellcheckString("completely_unrelated_garbage", "build", "clean"); got != "" {
		t.Errorf("SpellcheckString = %q, want \"\"", got)
	}
}

func TestElideMiddle_Basics(t *testing.T) {
	short := "short string"
	if got := ElideMiddle(short, 40); got != short {
		t.Errorf("ElideMiddle(short) = %q, want unchanged", got)
	}
	long := "this is a pretty long string that should get elided in the middle"
	got := ElideMiddle(long, 20)
	if len(got) > 20 {
		t.Errorf("ElideMiddle result too long: %q (%d)", got, len(got))
	}
}

func TestStripAnsiEscapeCodes_Basics(t *testing.T) {
	if got, want := StripAnsiEscapeCodes("\x1b[1;30mHi\x1b[0m"), "Hi"; got != want {
		t.Errorf("StripAnsiEscapeCodes = %q, want %q", got, want)
	}
	if got, want := StripAnsiEscapeCodes("plain"), "plain"; got != want {
		t.Errorf("StripAnsiEscapeCodes = %q, want %q", got, want)
	}
}
