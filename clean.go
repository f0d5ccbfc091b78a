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
)

// Cleaner implements the -t clean tool: remove outputs and side files
// (depfile, rspfile) that edges produce, without touching source inputs.
type Cleaner struct {
	state        *State
	config       *BuildConfig
	dyndepLoader *DyndepLoader
	disk         DiskInterface

	removed            map[string]struct{}
	cleaned            map[*Node]struct{}
	cleanedFilesCount  int
	status             int
}

// NewCleaner builds a cleaner object bound to state's graph.
func NewCleaner(state *State, config *BuildConfig, disk DiskInterface) *Cleaner {
	return &Cleaner{
		state:        state,
		config:       config,
		dyndepLoader: NewDyndepLoader(state, disk),
		disk:         disk,
	}
}

// CleanedFilesCount returns the number of files removed so far.
func (c *Cleaner) CleanedFilesCount() int {
	return c.cleanedFilesCount
}

func (c *Cleaner) isVerbose() bool {
	return c.config.verbosity != QUIET && (c.config.verbosity == VERBOSE || c.config.dry_run)
}

func (c *Cleaner) removeFile(path string) int {
	if err := c.disk.RemoveFile(path); err != nil {
		if os.IsNotExist(err) {
			return 1
		}
		return -1
	}
	return 0
}

func (c *Cleaner) fileExists(path string) bool {
	mtime, err := c.disk.Stat(path)
	if err != nil {
		Error("%s", err)
	}
	return mtime > 0
}

func (c *Cleaner) report(path string) {
	c.cleanedFilesCount++
	if c.isVerbose() {
		fmt.Printf("Remove %s\n", path)
	}
}

func (c *Cleaner) remove(path string) {
	if c.isAlreadyRemoved(path) {
		return
	}
	c.removed[path] = struct{}{}
	if c.config.dry_run {
		if c.fileExists(path) {
			c.report(path)
		}
		return
	}
	switch c.removeFile(path) {
	case 0:
		c.report(path)
	case -1:
		c.status = 1
	}
}

func (c *Cleaner) isAlreadyRemoved(path string) bool {
	_, ok := c.removed[path]
	return ok
}

func (c *Cleaner) removeEdgeFiles(edge *Edge) {
	if depfile := edge.GetUnescapedDepfile(); depfile != "" {
		c.remove(depfile)
	}
	if rspfile := edge.GetUnescapedRspfile(); rspfile != "" {
		c.remove(rspfile)
	}
}

func (c *Cleaner) printHeader() {
	if c.config.verbosity == QUIET {
		return
	}
	if c.isVerbose() {
		fmt.Print("Cleaning...\n")
	} else {
		fmt.Print("Cleaning... ")
	}
}

func (c *Cleaner) printFooter() {
	if c.config.verbosity == QUIET {
		return
	}
	fmt.Printf("%d files.\n", c.cleanedFilesCount)
}

func (c *Cleaner) reset() {
	c.status = 0
	c.cleanedFilesCount = 0
	c.removed = map[string]struct{}{}
	c.cleaned = map[*Node]struct{}{}
}

// loadDyndeps loads every edge's dyndep file before cleaning so that
// dynamically-discovered outputs are cleaned too. Errors are ignored: we
// clean as much of the graph as we know.
func (c *Cleaner) loadDyndeps() {
	for _, e := range c.state.Edges {
		if e.Dyndep == nil {
			continue
		}
		ddf := DyndepFile{}
		c.dyndepLoader.LoadDyndeps(e.Dyndep, &ddf)
	}
}

// CleanAll removes every edge's outputs and side files. Generator edges are
// skipped unless generator is true.
func (c *Cleaner) CleanAll(generator bool) int {
	c.reset()
	c.printHeader()
	c.loadDyndeps()
	for _, e := range c.state.Edges {
		if e.IsPhony() {
			continue
		}
		if !generator && e.GetBindingBool("generator") {
			continue
		}
		for _, out := range e.Outputs {
			c.remove(out.Path())
		}
		c.removeEdgeFiles(e)
	}
	c.printFooter()
	return c.status
}

// CleanDead removes outputs recorded in the build log that are no longer
// part of the graph: either they have no node at all, or their node is
// neither an input nor an output of any edge anymore.
func (c *Cleaner) CleanDead(entries map[string]*LogEntry) int {
	c.reset()
	c.printHeader()
	for path := range entries {
		n := c.state.lookupNode(path)
		if n == nil || (n.InEdge == nil && len(n.OutEdges) == 0) {
			c.remove(path)
		}
	}
	c.printFooter()
	return c.status
}

func (c *Cleaner) doCleanTarget(target *Node) {
	if e := target.InEdge; e != nil {
		if !e.IsPhony() {
			c.remove(target.Path())
			c.removeEdgeFiles(e)
		}
		for _, in := range e.Inputs {
			if _, ok := c.cleaned[in]; !ok {
				c.doCleanTarget(in)
			}
		}
	}
	c.cleaned[target] = struct{}{}
}

// CleanTarget removes target and its whole input chain's outputs.
func (c *Cleaner) CleanTarget(target *Node) int {
	c.reset()
	c.printHeader()
	c.loadDyndeps()
	c.doCleanTarget(target)
	c.printFooter()
	return c.status
}

// CleanTargetByName resolves name to a node and cleans it, or reports the
// name as unknown.
func (c *Cleaner) CleanTargetByName(name string) int {
	c.reset()
	node := c.state.lookupNode(name)
	if node == nil {
		Error("unknown target '%s'", name)
		c.status = 1
		return c.status
	}
	return c.CleanTarget(node)
}

// CleanTargets resolves and cleans every named target, continuing past
// unknown names after recording them as a failure.
func (c *Cleaner) CleanTargets(targetNames []string) int {
	c.reset()
	c.printHeader()
	c.loadDyndeps()
	for _, name := range targetNames {
		if name == "" {
			Error("failed to canonicalize '': empty path")
			c.status = 1
			continue
		}
		canon := CanonicalizePath(name)
		target := c.state.lookupNode(canon)
		if target == nil {
			Error("unknown target '%s'", name)
			c.status = 1
			continue
		}
		if c.isVerbose() {
			fmt.Printf("Target %s\n", name)
		}
		c.doCleanTarget(target)
	}
	c.printFooter()
	return c.status
}

func (c *Cleaner) doCleanRule(rule *Rule) {
	for _, e := range c.state.Edges {
		if e.Rule.Name != rule.Name {
			continue
		}
		for _, out := range e.Outputs {
			c.remove(out.Path())
		}
		c.removeEdgeFiles(e)
	}
}

// CleanRule removes the outputs of every edge using rule.
func (c *Cleaner) CleanRule(rule *Rule) int {
	c.reset()
	c.printHeader()
	c.loadDyndeps()
	c.doCleanRule(rule)
	c.printFooter()
	return c.status
}

// CleanRuleByName resolves name to a declared rule and cleans its outputs.
func (c *Cleaner) CleanRuleByName(name string) int {
	c.reset()
	rule := c.state.Bindings.LookupRule(name)
	if rule == nil {
		Error("unknown rule '%s'", name)
		c.status = 1
		return c.status
	}
	return c.CleanRule(rule)
}

// CleanRules resolves and cleans the outputs of every named rule.
func (c *Cleaner) CleanRules(ruleNames []string) int {
	c.reset()
	c.printHeader()
	c.loadDyndeps()
	for _, name := range ruleNames {
		rule := c.state.Bindings.LookupRule(name)
		if rule == nil {
			Error("unknown rule '%s'", name)
			c.status = 1
			continue
		}
		if c.isVerbose() {
			fmt.Printf("Rule %s\n", name)
		}
		c.doCleanRule(rule)
	}
	c.printFooter()
	return c.status
}
