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

package main

import (
	"fmt"
	"os"

	"github.com/caldera-build/anvil"
)

// runBrowse serves a read-only dependency graph view over HTTP until
// interrupted. addr is the listen address, e.g. "localhost:8080".
func runBrowse(state *anvil.State, addr string) {
	srv := anvil.NewBrowseServer(state)
	fmt.Fprintf(os.Stdout, "anvil: browsing at http://%s/\n", addr)
	if err := srv.ListenAndServe(addr); err != nil {
		fatalf("%s", err)
	}
}
