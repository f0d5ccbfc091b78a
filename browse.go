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
	"html"
	"net/http"
	"sort"
)

// BrowseServer serves a read-only HTML view of the build graph: the
// target list, and per-target the producing rule plus its inputs/outputs.
// It replaces the original tool's exec of an external Python webserver
// with a self-contained net/http handler.
type BrowseServer struct {
	state *State
}

// NewBrowseServer binds a browser to state's graph.
func NewBrowseServer(state *State) *BrowseServer {
	return &BrowseServer{state: state}
}

// ServeHTTP implements http.Handler. "/" lists every node path; "/node?p="
// shows one node's producing edge and its in/out nodes.
func (b *BrowseServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/", "/index.html":
		b.serveIndex(w)
	case "/node":
		b.serveNode(w, r.URL.Query().Get("p"))
	default:
		http.NotFound(w, r)
	}
}

func (b *BrowseServer) serveIndex(w http.ResponseWriter) {
	paths := make([]string, 0, len(b.state.Paths))
	for p := range b.state.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	fmt.Fprint(w, "<html><body><h1>targets</h1><ul>\n")
	for _, p := range paths {
		fmt.Fprintf(w, "<li><a href=\"/node?p=%s\">%s</a></li>\n", html.EscapeString(p), html.EscapeString(p))
	}
	fmt.Fprint(w, "</ul></body></html>\n")
}

func (b *BrowseServer) serveNode(w http.ResponseWriter, path string) {
	node, ok := b.state.Paths[path]
	if !ok {
		http.NotFound(w, nil)
		return
	}

	fmt.Fprintf(w, "<html><body><h1>%s</h1>\n", html.EscapeString(path))
	if node.InEdge == nil {
		fmt.Fprint(w, "<p>source file, not built by any rule</p>\n")
	} else {
		fmt.Fprintf(w, "<p>rule: %s</p>\n<h2>inputs</h2><ul>\n", html.EscapeString(node.InEdge.Rule.Name))
		for _, in := range node.InEdge.Inputs {
			fmt.Fprintf(w, "<li><a href=\"/node?p=%s\">%s</a></li>\n", html.EscapeString(in.Path()), html.EscapeString(in.Path()))
		}
		fmt.Fprint(w, "</ul>\n")
	}
	fmt.Fprint(w, "<h2>outputs used by</h2><ul>\n")
	for _, out := range node.OutEdges {
		for _, o := range out.Outputs {
			fmt.Fprintf(w, "<li><a href=\"/node?p=%s\">%s</a></li>\n", html.EscapeString(o.Path()), html.EscapeString(o.Path()))
		}
	}
	fmt.Fprint(w, "</ul></body></html>\n")
}

// ListenAndServe starts the browse server on addr, blocking until it
// fails or the process is killed. Matches the original tool's intent:
// a long-running local webserver over the current build graph.
func (b *BrowseServer) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, b)
}
