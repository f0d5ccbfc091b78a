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

func TestEditDistance_Empty(t *testing.T) {
	if got := editDistance("", "ninja", true, 0); got != 5 {
		t.Errorf("editDistance(\"\", \"ninja\") = %d, want 5", got)
	}
	if got := editDistance("ninja", "", true, 0); got != 5 {
		t.Errorf("editDistance(\"ninja\", \"\") = %d, want 5", got)
	}
	if got := editDistance("", "", true, 0); got != 0 {
		t.Errorf("editDistance(\"\", \"\") = %d, want 0", got)
	}
}

func TestEditDistance_MaxDistance(t *testing.T) {
	for maxDistance := 1; maxDistance < 7; maxDistance++ {
		got := editDistance("abcdefghijklmnop", "ponmlkjihgfedcba", true, maxDistance)
		if want := maxDistance + 1; got != want {
			t.Errorf("editDistance(maxDistance=%d) = %d, want %d", maxDistance, got, want)
		}
	}
}

func TestEditDistance_AllowReplacements(t *testing.T) {
	if got := editDistance("ninja", "njnja", true, 0); got != 1 {
		t.Errorf("editDistance(allow) = %d, want 1", got)
	}
	if got := editDistance("njnja", "ninja", true, 0); got != 1 {
		t.Errorf("editDistance(allow) = %d, want 1", got)
	}
	if got := editDistance("ninja", "njnja", false, 0); got != 2 {
		t.Errorf("editDistance(disallow) = %d, want 2", got)
	}
	if got := editDistance("njnja", "ninja", false, 0); got != 2 {
		t.Errorf("editDistance(disallow) = %d, want 2", got)
	}
}

func TestEditDistance_Basics(t *testing.T) {
	if got := editDistance("browser_tests", "browser_tests", true, 0); got != 0 {
		t.Errorf("editDistance(identical) = %d, want 0", got)
	}
	if got := editDistance("browser_test", "browser_tests", true, 0); got != 1 {
		t.Errorf("editDistance(one-off) = %d, want 1", got)
	}
	if got := editDistance("browser_tests", "browser_test", true, 0); got != 1 {
		t.Errorf("editDistance(one-off) = %d, want 1", got)
	}
}
