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

package anvil

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

const depsLogTestFilename = "DepsLogTest-tempfile"

func TestDepsLog_WriteRead(t *testing.T) {
	CreateTempDirAndEnter(t)

	state1 := NewState()
	log1 := NewDepsLog()
	require.NoError(t, log1.OpenForWrite(depsLogTestFilename))

	{
		deps := []*Node{state1.GetNode("foo.h", 0), state1.GetNode("bar.h", 0)}
		require.NoError(t, log1.RecordDeps(state1.GetNode("out.o", 0), 1, deps))

		deps = []*Node{state1.GetNode("foo.h", 0), state1.GetNode("bar2.h", 0)}
		require.NoError(t, log1.RecordDeps(state1.GetNode("out2.o", 0), 2, deps))
	}

	require.NoError(t, log1.Close())

	state2 := NewState()
	log2 := NewDepsLog()
	status, err := log2.Load(depsLogTestFilename, state2)
	require.NoError(t, err)
	require.Equal(t, LoadSuccess, status)

	require.Equal(t, log1.nodes, log2.nodes)

	outNode := state2.GetNode("out.o", 0)
	deps := log2.GetDeps(outNode)
	require.NotNil(t, deps)
	require.EqualValues(t, 1, deps.Mtime)
	require.Len(t, deps.Nodes, 2)
	require.Equal(t, "foo.h", deps.Nodes[0].Path())
	require.Equal(t, "bar.h", deps.Nodes[1].Path())

	out2Node := state2.GetNode("out2.o", 0)
	deps2 := log2.GetDeps(out2Node)
	require.NotNil(t, deps2)
	require.EqualValues(t, 2, deps2.Mtime)
	require.Len(t, deps2.Nodes, 2)
	require.Equal(t, "foo.h", deps2.Nodes[0].Path())
	require.Equal(t, "bar2.h", deps2.Nodes[1].Path())
}

func TestDepsLog_LotsOfDeps(t *testing.T) {
	CreateTempDirAndEnter(t)

	const depsCount = 100000 // More than 64k, to confirm no truncation to 16 bits happens.

	state1 := NewState()
	log1 := NewDepsLog()
	require.NoError(t, log1.OpenForWrite(depsLogTestFilename))

	deps := make([]*Node, depsCount)
	for i := 0; i < depsCount; i++ {
		deps[i] = state1.GetNode(fmt.Sprintf("file%d.h", i), 0)
	}
	require.NoError(t, log1.RecordDeps(state1.GetNode("out.o", 0), 1, deps))
	require.NoError(t, log1.Close())

	state2 := NewState()
	log2 := NewDepsLog()
	status, err := log2.Load(depsLogTestFilename, state2)
	require.NoError(t, err)
	require.Equal(t, LoadSuccess, status)

	outNode := state2.GetNode("out.o", 0)
	entry := log2.GetDeps(outNode)
	require.NotNil(t, entry)
	require.Len(t, entry.Nodes, depsCount)
}

func TestDepsLog_DoubleEntry(t *testing.T) {
	CreateTempDirAndEnter(t)

	state := NewState()
	log := NewDepsLog()
	require.NoError(t, log.OpenForWrite(depsLogTestFilename))

	deps := []*Node{state.GetNode("foo.h", 0), state.GetNode("bar.h", 0)}
	require.NoError(t, log.RecordDeps(state.GetNode("out.o", 0), 1, deps))
	require.NoError(t, log.Close())

	info1, err := os.Stat(depsLogTestFilename)
	require.NoError(t, err)

	log2 := NewDepsLog()
	_, err = log2.Load(depsLogTestFilename, state)
	require.NoError(t, err)
	require.NoError(t, log2.OpenForWrite(depsLogTestFilename))
	require.NoError(t, log2.RecordDeps(state.GetNode("out.o", 0), 1, deps))
	require.NoError(t, log2.Close())

	info2, err := os.Stat(depsLogTestFilename)
	require.NoError(t, err)
	require.Equal(t, info1.Size(), info2.Size())
}

func TestDepsLog_Recompact(t *testing.T) {
	CreateTempDirAndEnter(t)

	fixture := NewStateTestWithBuiltinRules(t)
	fixture.AssertParse(&fixture.state, "build out: cat in\n  deps = gcc\nbuild out2: cat in\n  deps = gcc\n", ManifestParserOptions{})

	log1 := NewDepsLog()
	require.NoError(t, log1.OpenForWrite(depsLogTestFilename))

	deps := []*Node{fixture.GetNode("foo.h"), fixture.GetNode("bar.h")}
	require.NoError(t, log1.RecordDeps(fixture.GetNode("out"), 1, deps))

	deps2 := []*Node{fixture.GetNode("foo.h")}
	require.NoError(t, log1.RecordDeps(fixture.GetNode("out2"), 1, deps2))

	require.NoError(t, log1.Close())

	info1, err := os.Stat(depsLogTestFilename)
	require.NoError(t, err)

	log2 := NewDepsLog()
	status, err := log2.Load(depsLogTestFilename, &fixture.state)
	require.NoError(t, err)
	require.Equal(t, LoadSuccess, status)

	// Update out's deps, which should grow the log (append, not overwrite).
	newDeps := []*Node{fixture.GetNode("foo.h")}
	require.NoError(t, log2.OpenForWrite(depsLogTestFilename))
	require.NoError(t, log2.RecordDeps(fixture.GetNode("out"), 2, newDeps))
	require.NoError(t, log2.Close())

	info2, err := os.Stat(depsLogTestFilename)
	require.NoError(t, err)
	require.Greater(t, info2.Size(), info1.Size())

	log3 := NewDepsLog()
	status, err = log3.Load(depsLogTestFilename, &fixture.state)
	require.NoError(t, err)
	require.Equal(t, LoadSuccess, status)

	outDeps := log3.GetDeps(fixture.GetNode("out"))
	require.NotNil(t, outDeps)
	require.EqualValues(t, 2, outDeps.Mtime)
	require.Len(t, outDeps.Nodes, 1)
	out2Deps := log3.GetDeps(fixture.GetNode("out2"))
	require.NotNil(t, out2Deps)
	require.Len(t, out2Deps.Nodes, 1)

	require.NoError(t, log3.Recompact(depsLogTestFilename))

	info3, err := os.Stat(depsLogTestFilename)
	require.NoError(t, err)
	require.Less(t, info3.Size(), info2.Size())

	// Recompacting doesn't lose live entries or their graph identity.
	outDeps = log3.GetDeps(fixture.GetNode("out"))
	require.NotNil(t, outDeps)
	require.EqualValues(t, 2, outDeps.Mtime)
	out2Deps = log3.GetDeps(fixture.GetNode("out2"))
	require.NotNil(t, out2Deps)

	log4 := NewDepsLog()
	status, err = log4.Load(depsLogTestFilename, &fixture.state)
	require.NoError(t, err)
	require.Equal(t, LoadSuccess, status)
	require.NotNil(t, log4.GetDeps(fixture.GetNode("out")))
	require.NotNil(t, log4.GetDeps(fixture.GetNode("out2")))

	// Recompacting against a manifest where nothing is live anymore drops
	// every entry, along with its node id.
	emptyState := NewState()
	log5 := NewDepsLog()
	status, err = log5.Load(depsLogTestFilename, emptyState)
	require.NoError(t, err)
	require.Equal(t, LoadSuccess, status)
	require.NoError(t, log5.Recompact(depsLogTestFilename))
	log6 := NewDepsLog()
	status, err = log6.Load(depsLogTestFilename, NewState())
	require.NoError(t, err)
	require.Equal(t, LoadSuccess, status)
	require.Empty(t, log6.nodes)
}

func TestDepsLog_InvalidHeader(t *testing.T) {
	CreateTempDirAndEnter(t)

	invalidHeaders := []string{
		"",
		"# ninjad",
		"# ninjadeps\n",
		"# ninjadeps\n\x01\x02",
		"# ninjadeps\n\x03\x00\x00\x00",
	}

	for i, header := range invalidHeaders {
		t.Run(fmt.Sprintf("case%d", i), func(t *testing.T) {
			writeFileT(t, depsLogTestFilename, header)

			state := NewState()
			log := NewDepsLog()
			status, err := log.Load(depsLogTestFilename, state)
			require.NoError(t, err)
			require.Equal(t, LoadSuccess, status)
			require.Empty(t, log.nodes)
		})
	}
}

func TestDepsLog_Truncated(t *testing.T) {
	CreateTempDirAndEnter(t)

	{
		state := NewState()
		log := NewDepsLog()
		require.NoError(t, log.OpenForWrite(depsLogTestFilename))
		deps := []*Node{state.GetNode("foo.h", 0), state.GetNode("bar.h", 0)}
		require.NoError(t, log.RecordDeps(state.GetNode("out.o", 0), 1, deps))
		deps2 := []*Node{state.GetNode("foo.h", 0)}
		require.NoError(t, log.RecordDeps(state.GetNode("out2.o", 0), 2, deps2))
		require.NoError(t, log.Close())
	}

	fullContents, err := os.ReadFile(depsLogTestFilename)
	require.NoError(t, err)

	// Truncate the file from full size down to nothing, byte by byte, and
	// confirm a corrupt tail never produces more entries than the last
	// successful truncation point did.
	prevNodeCount := len(fullContents) + 1
	prevEntryCount := prevNodeCount
	for size := len(fullContents); size >= 0; size-- {
		require.NoError(t, os.WriteFile(depsLogTestFilename, fullContents[:size], 0666))

		state := NewState()
		log := NewDepsLog()
		status, err := log.Load(depsLogTestFilename, state)
		require.NoError(t, err)
		require.Equal(t, LoadSuccess, status)

		nodeCount := len(log.nodes)
		entryCount := 0
		for _, e := range log.entries {
			if e != nil {
				entryCount++
			}
		}
		require.LessOrEqual(t, nodeCount, prevNodeCount)
		require.LessOrEqual(t, entryCount, prevEntryCount)
		prevNodeCount = nodeCount
		prevEntryCount = entryCount
	}
}

func TestDepsLog_TruncatedRecovery(t *testing.T) {
	CreateTempDirAndEnter(t)

	state := NewState()
	{
		log := NewDepsLog()
		require.NoError(t, log.OpenForWrite(depsLogTestFilename))
		deps := []*Node{state.GetNode("foo.h", 0), state.GetNode("bar.h", 0)}
		require.NoError(t, log.RecordDeps(state.GetNode("out.o", 0), 1, deps))
		require.NoError(t, log.Close())
	}

	contents, err := os.ReadFile(depsLogTestFilename)
	require.NoError(t, err)
	// Chop off the last couple bytes, corrupting only the trailing record.
	require.NoError(t, os.WriteFile(depsLogTestFilename, contents[:len(contents)-2], 0666))

	log2 := NewDepsLog()
	status, err := log2.Load(depsLogTestFilename, state)
	require.NoError(t, err)
	require.Equal(t, LoadSuccess, status)

	// The truncated trailing deps record was dropped, but appending still
	// works and a subsequent reload sees the new entry.
	require.NoError(t, log2.OpenForWrite(depsLogTestFilename))
	deps := []*Node{state.GetNode("foo.h", 0)}
	require.NoError(t, log2.RecordDeps(state.GetNode("out2.o", 0), 3, deps))
	require.NoError(t, log2.Close())

	state3 := NewState()
	log3 := NewDepsLog()
	status, err = log3.Load(depsLogTestFilename, state3)
	require.NoError(t, err)
	require.Equal(t, LoadSuccess, status)
	require.NotNil(t, log3.GetDeps(state3.GetNode("out2.o", 0)))
}

func TestDepsLog_ReverseDepsNodes(t *testing.T) {
	CreateTempDirAndEnter(t)

	state := NewState()
	log := NewDepsLog()
	require.NoError(t, log.OpenForWrite(depsLogTestFilename))

	deps := []*Node{state.GetNode("foo.h", 0), state.GetNode("bar.h", 0)}
	require.NoError(t, log.RecordDeps(state.GetNode("out.o", 0), 1, deps))
	deps2 := []*Node{state.GetNode("foo.h", 0)}
	require.NoError(t, log.RecordDeps(state.GetNode("out2.o", 0), 1, deps2))
	require.NoError(t, log.Close())

	rev := log.GetFirstReverseDepsNode(state.GetNode("foo.h", 0))
	require.NotNil(t, rev)
	require.True(t, rev.Path() == "out.o" || rev.Path() == "out2.o")

	revBar := log.GetFirstReverseDepsNode(state.GetNode("bar.h", 0))
	require.NotNil(t, revBar)
	require.Equal(t, "out.o", revBar.Path())
}
