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
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func sortEdgesByOutput(edges []*Edge) {
	sort.Slice(edges, func(i, j int) bool {
		return edges[i].Outputs[0].Path() < edges[j].Outputs[0].Path()
	})
}

// planTestFixture exercises Plan in isolation, without a Builder attached.
type planTestFixture struct {
	StateTestWithBuiltinRules
	plan *Plan
}

func newPlanTestFixture(t *testing.T) *planTestFixture {
	f := &planTestFixture{StateTestWithBuiltinRules: NewStateTestWithBuiltinRules(t)}
	f.plan = NewPlan(nil)
	return f
}

func (f *planTestFixture) assertParse(input string) {
	f.t.Helper()
	f.AssertParse(&f.state, input, ManifestParserOptions{})
}

func (f *planTestFixture) getNode(path string) *Node {
	return f.GetNode(path)
}

// findWorkSorted pops every ready edge and returns them sorted by first
// output, to give deterministic test assertions despite the FIFO pop order.
func (f *planTestFixture) findWorkSorted(n int) []*Edge {
	f.t.Helper()
	edges := make([]*Edge, 0, n)
	for i := 0; i < n; i++ {
		edge := f.plan.FindWork()
		require.NotNil(f.t, edge)
		edges = append(edges, edge)
	}
	require.Nil(f.t, f.plan.FindWork())
	sortEdgesByOutput(edges)
	return edges
}

func TestPlanTest_Basic(t *testing.T) {
	f := newPlanTestFixture(t)
	f.assertParse("build out: cat mid\nbuild mid: cat in\n")
	f.getNode("mid").Dirty = true
	f.getNode("out").Dirty = true

	ok, err := f.plan.AddTarget(f.getNode("out"))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, f.plan.MoreToDo())

	edge := f.plan.FindWork()
	require.NotNil(t, edge)
	require.Equal(t, "in", edge.Inputs[0].Path())
	require.Equal(t, "mid", edge.Outputs[0].Path())

	require.Nil(t, f.plan.FindWork())

	require.NoError(t, f.plan.EdgeFinished(edge, EdgeSucceeded))

	edge = f.plan.FindWork()
	require.NotNil(t, edge)
	require.Equal(t, "mid", edge.Inputs[0].Path())
	require.Equal(t, "out", edge.Outputs[0].Path())

	require.NoError(t, f.plan.EdgeFinished(edge, EdgeSucceeded))

	require.False(t, f.plan.MoreToDo())
	require.Nil(t, f.plan.FindWork())
}

func TestPlanTest_DoubleOutputDirect(t *testing.T) {
	f := newPlanTestFixture(t)
	f.assertParse("build out: cat mid1 mid2\nbuild mid1: cat in\nbuild mid2: cat in\n")
	f.getNode("mid1").Dirty = true
	f.getNode("mid2").Dirty = true
	f.getNode("out").Dirty = true

	ok, err := f.plan.AddTarget(f.getNode("out"))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, f.plan.MoreToDo())

	edge := f.plan.FindWork()
	require.NotNil(t, edge)
	require.Equal(t, "in", edge.Inputs[0].Path())
	require.NoError(t, f.plan.EdgeFinished(edge, EdgeSucceeded))

	for i := 0; i < 1; i++ {
		edge = f.plan.FindWork()
		require.NotNil(t, edge)
		require.Equal(t, "in", edge.Inputs[0].Path())
		require.NoError(t, f.plan.EdgeFinished(edge, EdgeSucceeded))
	}

	edge = f.plan.FindWork()
	require.NotNil(t, edge)
	require.Equal(t, "out", edge.Outputs[0].Path())
	require.NoError(t, f.plan.EdgeFinished(edge, EdgeSucceeded))

	require.False(t, f.plan.MoreToDo())
	require.Nil(t, f.plan.FindWork())
}

func TestPlanTest_DoubleOutputIndirect(t *testing.T) {
	f := newPlanTestFixture(t)
	f.assertParse("build out: cat b1 b2\nbuild b1: cat a1\nbuild b2: cat a2\nbuild a1: cat in\nbuild a2: cat in\n")
	for _, p := range []string{"a1", "a2", "b1", "b2", "out"} {
		f.getNode(p).Dirty = true
	}

	ok, err := f.plan.AddTarget(f.getNode("out"))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, f.plan.MoreToDo())

	edge := f.plan.FindWork()
	require.NotNil(t, edge)
	require.Equal(t, "in", edge.Inputs[0].Path())
	require.NoError(t, f.plan.EdgeFinished(edge, EdgeSucceeded))

	for i := 0; i < 1; i++ {
		edge = f.plan.FindWork()
		require.NotNil(t, edge)
		require.Equal(t, "in", edge.Inputs[0].Path())
		require.NoError(t, f.plan.EdgeFinished(edge, EdgeSucceeded))
	}

	for i := 0; i < 2; i++ {
		edge = f.plan.FindWork()
		require.NotNil(t, edge)
		require.NoError(t, f.plan.EdgeFinished(edge, EdgeSucceeded))
	}

	edge = f.plan.FindWork()
	require.NotNil(t, edge)
	require.Equal(t, "out", edge.Outputs[0].Path())
	require.NoError(t, f.plan.EdgeFinished(edge, EdgeSucceeded))

	require.False(t, f.plan.MoreToDo())
	require.Nil(t, f.plan.FindWork())
}

func TestPlanTest_DoubleDependent(t *testing.T) {
	f := newPlanTestFixture(t)
	f.assertParse("build out1: cat mid\nbuild out2: cat mid\nbuild mid: cat in\n")
	f.getNode("mid").Dirty = true
	f.getNode("out1").Dirty = true
	f.getNode("out2").Dirty = true

	ok, err := f.plan.AddTarget(f.getNode("out1"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = f.plan.AddTarget(f.getNode("out2"))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, f.plan.MoreToDo())

	edge := f.plan.FindWork()
	require.NotNil(t, edge)
	require.Equal(t, "in", edge.Inputs[0].Path())
	require.Equal(t, "mid", edge.Outputs[0].Path())
	require.NoError(t, f.plan.EdgeFinished(edge, EdgeSucceeded))

	edges := f.findWorkSorted(2)
	require.Equal(t, "mid", edges[0].Inputs[0].Path())
	require.Equal(t, "out1", edges[0].Outputs[0].Path())
	require.Equal(t, "mid", edges[1].Inputs[0].Path())
	require.Equal(t, "out2", edges[1].Outputs[0].Path())

	require.NoError(t, f.plan.EdgeFinished(edges[0], EdgeSucceeded))
	require.NoError(t, f.plan.EdgeFinished(edges[1], EdgeSucceeded))

	require.False(t, f.plan.MoreToDo())
	require.Nil(t, f.plan.FindWork())
}

func TestPlanTest_PoolWithDepthOne(t *testing.T) {
	f := newPlanTestFixture(t)
	f.assertParse("pool foobar\n  depth = 1\nbuild out1: cat in\n  pool = foobar\nbuild out2: cat in\n  pool = foobar\n")
	f.getNode("out1").Dirty = true
	f.getNode("out2").Dirty = true

	ok, err := f.plan.AddTarget(f.getNode("out1"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = f.plan.AddTarget(f.getNode("out2"))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, f.plan.MoreToDo())

	edge := f.plan.FindWork()
	require.NotNil(t, edge)
	require.Equal(t, "out1", edge.Outputs[0].Path())

	require.Nil(t, f.plan.FindWork())

	require.NoError(t, f.plan.EdgeFinished(edge, EdgeSucceeded))

	edge = f.plan.FindWork()
	require.NotNil(t, edge)
	require.Equal(t, "out2", edge.Outputs[0].Path())

	require.Nil(t, f.plan.FindWork())

	require.NoError(t, f.plan.EdgeFinished(edge, EdgeSucceeded))

	require.False(t, f.plan.MoreToDo())
}

func TestPlanTest_ConsolePool(t *testing.T) {
	f := newPlanTestFixture(t)
	f.assertParse("pool console\n  depth = 1\nbuild out1: cat in\n  pool = console\nbuild out2: cat in\n")
	require.NotNil(t, f.state.LookupPool("console"))
	f.getNode("out1").Dirty = true
	f.getNode("out2").Dirty = true

	ok, err := f.plan.AddTarget(f.getNode("out1"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = f.plan.AddTarget(f.getNode("out2"))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, f.plan.MoreToDo())

	edges := f.findWorkSorted(2)
	for _, e := range edges {
		require.NoError(t, f.plan.EdgeFinished(e, EdgeSucceeded))
	}
	require.False(t, f.plan.MoreToDo())
}

func TestPlanTest_PoolsWithDepthTwo(t *testing.T) {
	f := newPlanTestFixture(t)
	f.assertParse("pool foobar\n  depth = 2\nbuild out1: cat in\n  pool = foobar\nbuild out2: cat in\n  pool = foobar\nbuild out3: cat in\n  pool = foobar\n")
	for _, p := range []string{"out1", "out2", "out3"} {
		f.getNode(p).Dirty = true
	}

	for _, p := range []string{"out1", "out2", "out3"} {
		ok, err := f.plan.AddTarget(f.getNode(p))
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.True(t, f.plan.MoreToDo())

	edges := f.findWorkSorted(2)
	require.Nil(t, f.plan.FindWork())
	require.NoError(t, f.plan.EdgeFinished(edges[0], EdgeSucceeded))

	edge := f.plan.FindWork()
	require.NotNil(t, edge)
	require.Equal(t, "out3", edge.Outputs[0].Path())

	require.NoError(t, f.plan.EdgeFinished(edges[1], EdgeSucceeded))
	require.NoError(t, f.plan.EdgeFinished(edge, EdgeSucceeded))

	require.False(t, f.plan.MoreToDo())
}

func TestPlanTest_PoolWithRedundantEdges(t *testing.T) {
	f := newPlanTestFixture(t)
	f.assertParse("pool compile\n  depth = 1\n" +
		"rule gen_foo\n  command = touch foo.cpp\nrule gen_bar\n  command = touch bar.cpp\n" +
		"build foo.cpp.obj: cat foo.cpp || foo.cpp\n  pool = compile\n" +
		"build bar.cpp.obj: cat bar.cpp || bar.cpp\n  pool = compile\n" +
		"build libfoo.a: cat foo.cpp.obj bar.cpp.obj\nbuild foo.cpp: gen_foo\nbuild bar.cpp: gen_bar\n")
	f.getNode("foo.cpp.obj").Dirty = true
	f.getNode("bar.cpp.obj").Dirty = true
	f.getNode("libfoo.a").Dirty = true

	ok, err := f.plan.AddTarget(f.getNode("libfoo.a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, f.plan.MoreToDo())

	var ran []string
	for i := 0; i < 5; i++ {
		edge := f.plan.FindWork()
		if edge == nil {
			break
		}
		ran = append(ran, edge.Outputs[0].Path())
		require.NoError(t, f.plan.EdgeFinished(edge, EdgeSucceeded))
	}
	require.Contains(t, ran, "libfoo.a")
}

func TestPlanTest_PoolWithFailingEdge(t *testing.T) {
	f := newPlanTestFixture(t)
	f.assertParse("pool foobar\n  depth = 1\nbuild out1: cat in\n  pool = foobar\nbuild out2: cat in\n  pool = foobar\n")
	f.getNode("out1").Dirty = true
	f.getNode("out2").Dirty = true

	ok, err := f.plan.AddTarget(f.getNode("out1"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = f.plan.AddTarget(f.getNode("out2"))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, f.plan.MoreToDo())

	edge := f.plan.FindWork()
	require.NotNil(t, edge)
	require.Equal(t, "out1", edge.Outputs[0].Path())
	require.Nil(t, f.plan.FindWork())
	require.NoError(t, f.plan.EdgeFinished(edge, EdgeFailed))

	edge = f.plan.FindWork()
	require.NotNil(t, edge)
	require.Equal(t, "out2", edge.Outputs[0].Path())
	require.NoError(t, f.plan.EdgeFinished(edge, EdgeSucceeded))
}

// fakeCommandRunner is a CommandRunner that simulates command execution by
// manipulating a VirtualFileSystem according to the rule name, instead of
// actually spawning subprocesses.
type fakeCommandRunner struct {
	t              *testing.T
	fs             *VirtualFileSystem
	commandsRan    []string
	activeEdges    []*Edge
	maxActiveEdges int
	lastCommand    *Edge
}

func newFakeCommandRunner(t *testing.T, fs *VirtualFileSystem) *fakeCommandRunner {
	return &fakeCommandRunner{t: t, fs: fs, maxActiveEdges: 1}
}

func (f *fakeCommandRunner) CanRunMore() bool {
	return len(f.activeEdges) < f.maxActiveEdges || f.maxActiveEdges <= 0
}

func (f *fakeCommandRunner) StartCommand(edge *Edge) bool {
	f.t.Helper()
	if verify := edge.GetBinding("verify_active_edge"); verify != "" {
		for _, active := range f.activeEdges {
			require.NotEqual(f.t, verify, active.Outputs[0].Path())
		}
	}

	f.commandsRan = append(f.commandsRan, edge.EvaluateCommand(false))
	ruleName := edge.Rule.Name
	switch ruleName {
	case "cat", "cat_rsp", "cat_rsp_out", "cc", "cp_multi_msvc", "cp_multi_gcc",
		"touch", "touch-interrupt", "touch-fail-tick2":
		for _, out := range edge.Outputs {
			f.fs.Create(out.Path(), "")
		}
	case "true", "fail", "interrupt", "console":
		// No filesystem effect.
	case "cp":
		content, _, err := f.fs.ReadFile(edge.Inputs[0].Path())
		require.NoError(f.t, err)
		require.NoError(f.t, f.fs.WriteFile(edge.Outputs[0].Path(), content))
	case "touch-implicit-dep-out":
		dep := edge.GetBinding("test_dependency")
		f.fs.Create(dep, "")
		f.fs.Tick()
		for _, out := range edge.Outputs {
			f.fs.Create(out.Path(), "")
		}
	case "touch-out-implicit-dep":
		for _, out := range edge.Outputs {
			f.fs.Create(out.Path(), "")
		}
		f.fs.Tick()
		dep := edge.GetBinding("test_dependency")
		f.fs.Create(dep, "")
	case "generate-depfile":
		dep := edge.GetBinding("test_dependency")
		depfile := edge.GetUnescapedDepfile()
		var contents string
		for i, out := range edge.Outputs {
			if i > 0 {
				contents += " "
			}
			contents += out.Path()
		}
		contents += ": " + dep + "\n"
		f.fs.Create(depfile, contents)
		for _, out := range edge.Outputs {
			f.fs.Create(out.Path(), "")
		}
	default:
		f.t.Fatalf("unexpected rule %q in fake command runner", ruleName)
	}

	f.activeEdges = append(f.activeEdges, edge)
	return true
}

func (f *fakeCommandRunner) WaitForCommand(result *Result) bool {
	if len(f.activeEdges) == 0 {
		return false
	}

	// The most recently started edge finishes first, except that an active
	// console edge always finishes before any other.
	idx := len(f.activeEdges) - 1
	for i, e := range f.activeEdges {
		if e.UseConsole() {
			idx = i
			break
		}
	}
	edge := f.activeEdges[idx]
	f.activeEdges = append(f.activeEdges[:idx], f.activeEdges[idx+1:]...)

	result.Edge = edge
	result.Status = ExitSuccess

	switch edge.Rule.Name {
	case "interrupt", "touch-interrupt":
		result.Status = ExitInterrupted
		return true
	case "console":
		if !edge.UseConsole() {
			result.Status = ExitFailure
		}
		return true
	case "fail":
		result.Status = ExitFailure
	case "touch-fail-tick2":
		if f.fs.now == 2 {
			result.Status = ExitFailure
		}
	case "cp_multi_msvc":
		prefix := edge.GetBinding("msvc_deps_prefix")
		for _, in := range edge.Inputs {
			result.Output += prefix + " " + in.Path() + "\r\n"
		}
	}

	f.lastCommand = edge
	return true
}

func (f *fakeCommandRunner) GetActiveEdges() []*Edge { return f.activeEdges }
func (f *fakeCommandRunner) Abort()                  { f.activeEdges = nil }

// buildTestFixture mirrors a baseline build setup: a manifest defining a
// small diamond of cat rules, an in-memory filesystem, and a wired Builder
// ready to run fake commands.
type buildTestFixture struct {
	StateTestWithBuiltinRules
	config        BuildConfig
	fs            VirtualFileSystem
	commandRunner *fakeCommandRunner
	status        StatusPrinter
	builder       *Builder
}

func newBuildTestFixture(t *testing.T) *buildTestFixture {
	f := &buildTestFixture{
		StateTestWithBuiltinRules: NewStateTestWithBuiltinRules(t),
		config:                    NewBuildConfig(),
		fs:                        NewVirtualFileSystem(),
	}
	f.assertParse("build cat1: cat in1\nbuild cat2: cat in1 in2\nbuild cat12: cat cat1 cat2\n")

	f.commandRunner = newFakeCommandRunner(t, &f.fs)
	f.status = NewStatusPrinter(&f.config)
	f.rebuildBuilder()
	return f
}

func (f *buildTestFixture) rebuildBuilder() {
	f.builder = NewBuilder(&f.state, &f.config, nil, nil, &f.fs, &f.status, 0)
	f.builder.command_runner_ = f.commandRunner
}

func (f *buildTestFixture) assertParse(input string) {
	f.t.Helper()
	f.AssertParse(&f.state, input, ManifestParserOptions{})
}

func (f *buildTestFixture) getNode(path string) *Node {
	return f.GetNode(path)
}

// dirty marks path dirty and, if it's a leaf with no producing edge, also
// marks it missing so RecomputeDirty treats it as genuinely absent.
func (f *buildTestFixture) dirty(path string) {
	node := f.getNode(path)
	node.Dirty = true
	if node.InEdge == nil {
		node.MarkMissing()
	}
}

func (f *buildTestFixture) addTarget(name string) {
	f.t.Helper()
	_, err := f.builder.AddTargetName(name)
	require.NoError(f.t, err)
}

func TestBuildTest_NoWork(t *testing.T) {
	f := newBuildTestFixture(t)
	require.True(t, f.builder.AlreadyUpToDate())
}

func TestBuildTest_OneStep(t *testing.T) {
	f := newBuildTestFixture(t)
	f.fs.Create("in1", "")
	f.fs.Create("in2", "")
	f.dirty("cat1")
	f.addTarget("cat1")
	require.False(t, f.builder.AlreadyUpToDate())
	require.NoError(t, f.builder.Build())
	require.True(t, f.builder.AlreadyUpToDate())
	require.Equal(t, []string{"cat in1 > cat1"}, f.commandRunner.commandsRan)
}

func TestBuildTest_OneStep2(t *testing.T) {
	f := newBuildTestFixture(t)
	f.fs.Create("in1", "")
	f.fs.Create("in2", "")
	f.dirty("cat1")
	f.addTarget("cat1")
	require.NoError(t, f.builder.Build())
	require.Equal(t, []string{"cat in1 > cat1"}, f.commandRunner.commandsRan)
}

func TestBuildTest_TwoStep(t *testing.T) {
	f := newBuildTestFixture(t)
	f.fs.Create("in1", "")
	f.fs.Create("in2", "")
	f.addTarget("cat12")
	require.False(t, f.builder.AlreadyUpToDate())
	require.NoError(t, f.builder.Build())
	require.Len(t, f.commandRunner.commandsRan, 3)
	require.True(t, f.builder.AlreadyUpToDate())

	// Touching in1 and rebuilding should run exactly the rules that depend
	// on it plus the final cat again.
	f.fs.Tick()
	f.fs.Create("in1", "")
	f.rebuildBuilder()
	f.addTarget("cat12")
	require.NoError(t, f.builder.Build())
}

func TestBuildTest_TwoOutputs(t *testing.T) {
	f := newBuildTestFixture(t)
	f.assertParse("rule touch\n  command = touch $out\nbuild out1 out2: touch in\n")
	f.fs.Create("in", "")
	f.addTarget("out1")
	require.NoError(t, f.builder.Build())
	require.Len(t, f.commandRunner.commandsRan, 1)
}

func TestBuildTest_MissingInput(t *testing.T) {
	f := newBuildTestFixture(t)
	f.dirty("in1")
	_, err := f.builder.AddTargetName("cat1")
	require.Error(t, err)
	require.Equal(t, "'in1', needed by 'cat1', missing and no known rule to make it", err.Error())
}

func TestBuildTest_MissingTarget(t *testing.T) {
	f := newBuildTestFixture(t)
	_, err := f.builder.AddTargetName("nonexistent")
	require.Error(t, err)
	require.Equal(t, "unknown target: 'nonexistent'", err.Error())
}

func TestBuildTest_MakeDirs(t *testing.T) {
	f := newBuildTestFixture(t)
	f.assertParse("build subdir/dir2/file: cat in1\n")
	f.fs.Create("in1", "")
	f.addTarget("subdir/dir2/file")
	require.NoError(t, f.builder.Build())
	// directoriesMade is an unordered set in this port; assert membership
	// rather than insertion order.
	require.Len(t, f.fs.directoriesMade, 2)
	require.Contains(t, f.fs.directoriesMade, "subdir")
	require.Contains(t, f.fs.directoriesMade, "subdir/dir2")
}

func TestBuildTest_DepFileMissing(t *testing.T) {
	f := newBuildTestFixture(t)
	f.assertParse("rule cc\n  command = cc\n  depfile = $out.d\nbuild fo.o: cc foo.c\n")
	f.fs.Create("foo.c", "")
	f.addTarget("fo.o")
	require.False(t, f.builder.AlreadyUpToDate())
}

func TestBuildTest_StatusFormatElapsed(t *testing.T) {
	status := NewStatusPrinter(&BuildConfig{})
	out := status.FormatProgressStatus("elapsed %e", 1042)
	require.Equal(t, "elapsed 1.042", out)
}

func TestBuildTest_StatusFormatReplacePlaceholder(t *testing.T) {
	status := NewStatusPrinter(&BuildConfig{})
	require.Equal(t, "%", status.FormatProgressStatus("%%", 0))
	status.PlanHasTotalEdges(5)
	require.Equal(t, "5", status.FormatProgressStatus("%t", 0))
}

func TestBuildTest_ImplicitDeps(t *testing.T) {
	f := newBuildTestFixture(t)
	f.assertParse("build out: cat in | out.imp\n")
	f.fs.Create("in", "")
	f.fs.Create("out.imp", "")
	f.addTarget("out")
	require.NoError(t, f.builder.Build())
	edge := f.getNode("out").InEdge
	require.Equal(t, 2, len(edge.Inputs))
	require.Equal(t, 1, edge.ImplicitDeps)
}

func TestBuildTest_OrderOnlyDeps(t *testing.T) {
	f := newBuildTestFixture(t)
	f.assertParse("build out: cat in || otherfile\nbuild otherfile: cat in\n")
	f.fs.Create("in", "")
	f.addTarget("out")
	require.NoError(t, f.builder.Build())
	edge := f.getNode("out").InEdge
	require.Equal(t, 1, edge.OrderOnlyDeps)
	require.True(t, edge.IsOrderOnly(1))
}

func TestBuildTest_RebuildOrderOnlyDeps(t *testing.T) {
	f := newBuildTestFixture(t)
	f.assertParse("rule true\n  command = true\nbuild oo.h: true\nbuild out: cat in || oo.h\n")
	f.fs.Create("in", "")
	f.fs.Create("oo.h", "")
	f.addTarget("out")
	require.NoError(t, f.builder.Build())
	require.True(t, f.builder.AlreadyUpToDate())

	// With nothing changed, the existing order-only dep oo.h doesn't force
	// a rebuild of out.
	f.rebuildBuilder()
	f.addTarget("out")
	require.True(t, f.builder.AlreadyUpToDate())
}

func TestBuildTest_RestatTest(t *testing.T) {
	f := newBuildTestFixture(t)
	// The "true" rule never actually touches out1, so restat should
	// propagate cleanliness through to out2 and skip its command entirely.
	f.assertParse("rule true\n  command = true\n  restat = 1\nbuild out1: true in\nbuild out2: cat out1\n")
	f.fs.Create("in", "")
	f.fs.Create("out1", "")
	f.fs.Create("out2", "")
	f.fs.Tick()
	f.fs.Create("in", "")

	f.addTarget("out2")
	require.NoError(t, f.builder.Build())
	require.Equal(t, []string{"true"}, f.commandRunner.commandsRan)
}

func TestBuildTest_RestatMissingFile(t *testing.T) {
	f := newBuildTestFixture(t)
	f.assertParse("rule true\n  command = true\n  restat = 1\nbuild out1: true in\n")
	f.fs.Create("in", "")
	f.addTarget("out1")
	require.NoError(t, f.builder.Build())
	require.Len(t, f.commandRunner.commandsRan, 1)
}

func TestBuildTest_Phony(t *testing.T) {
	f := newBuildTestFixture(t)
	f.assertParse("build out: cat mid\nbuild mid: phony in\n")
	f.fs.Create("in", "")
	f.addTarget("out")
	require.NoError(t, f.builder.Build())
	require.Equal(t, []string{"cat in > out"}, f.commandRunner.commandsRan)
}

func TestBuildTest_PhonyNoWork(t *testing.T) {
	f := newBuildTestFixture(t)
	f.assertParse("build out: cat mid\nbuild mid: phony in\n")
	f.fs.Create("in", "")
	f.fs.Create("mid", "")
	f.fs.Create("out", "")
	f.fs.Tick()
	f.fs.Create("in", "")
	f.addTarget("out")
	require.NoError(t, f.builder.Build())
}

func TestBuildTest_Depends(t *testing.T) {
	f := newBuildTestFixture(t)
	f.fs.Create("in1", "")
	f.fs.Create("in2", "")
	f.addTarget("cat12")
	require.NoError(t, f.builder.Build())
	require.Len(t, f.commandRunner.commandsRan, 3)
}

func TestBuildTest_RspFile(t *testing.T) {
	f := newBuildTestFixture(t)
	f.assertParse("rule cat_rsp\n  command = cat $rspfile > $out\n  rspfile = $rspfile\n  rspfile_content = $in\nbuild out: cat_rsp in\n  rspfile = out.rsp\n")
	f.fs.Create("in", "")
	f.addTarget("out")
	require.NoError(t, f.builder.Build())
	entry, ok := f.fs.files["out.rsp"]
	require.True(t, ok)
	require.Equal(t, "in", string(entry.contents))
}

func TestBuildTest_InterruptCleanup(t *testing.T) {
	f := newBuildTestFixture(t)
	f.assertParse("rule interrupt\n  command = interrupt\nbuild out1: interrupt in1\n")
	f.fs.Create("in1", "")
	f.addTarget("out1")
	err := f.builder.Build()
	require.Error(t, err)
	require.Equal(t, "interrupted by user", err.Error())
}

func TestBuildTest_FailedCommand(t *testing.T) {
	f := newBuildTestFixture(t)
	f.assertParse("rule fail\n  command = fail\nbuild out1: fail\n")
	f.addTarget("out1")
	err := f.builder.Build()
	require.Error(t, err)
}

func TestBuildTest_GeneratedDepfile(t *testing.T) {
	f := newBuildTestFixture(t)
	f.assertParse("rule generate-depfile\n  command = generate-depfile\n  depfile = $out.d\n  test_dependency = header.h\nbuild out: generate-depfile\n")
	f.addTarget("out")
	require.NoError(t, f.builder.Build())

	entry, ok := f.fs.files["out.d"]
	require.True(t, ok)
	require.Contains(t, string(entry.contents), "header.h")
}

func TestBuildTest_CopyRule(t *testing.T) {
	f := newBuildTestFixture(t)
	f.assertParse("rule cp\n  command = cp $in $out\nbuild out1: cp in1\n")
	f.fs.Create("in1", "hello")
	f.addTarget("out1")
	require.NoError(t, f.builder.Build())

	content, _, err := f.fs.ReadFile("out1")
	require.NoError(t, err)
	require.Equal(t, "hello", content)
}

func TestBuildTest_ImplicitDepOutOrdering(t *testing.T) {
	f := newBuildTestFixture(t)
	f.assertParse("rule touch-implicit-dep-out\n  command = touch-implicit-dep-out\n  test_dependency = implicit.h\nbuild out1: touch-implicit-dep-out\n")
	f.addTarget("out1")
	require.NoError(t, f.builder.Build())

	depMtime, err := f.fs.Stat("implicit.h")
	require.NoError(t, err)
	outMtime, err := f.fs.Stat("out1")
	require.NoError(t, err)
	require.Less(t, depMtime, outMtime)
}

func TestBuildTest_PoolEdgesReadyButNotWanted(t *testing.T) {
	f := newBuildTestFixture(t)
	f.assertParse("pool some_pool\n  depth = 4\nrule touch\n  command = touch $out\nbuild a: touch\n  pool = some_pool\nbuild b: touch\n  pool = some_pool\nbuild final.stamp: cat a b\n")
	f.addTarget("final.stamp")
	require.NoError(t, f.builder.Build())

	pool := f.state.LookupPool("some_pool")
	require.NotNil(t, pool)
	require.GreaterOrEqual(t, pool.currentUse, 0)
}

// phonyUseCase parses one of six small phony-edge manifests for
// TestBuildTest_PhonyUseCase1 through PhonyUseCase6: cases 1, 2 and 4 alias
// a touch output through a phony edge, cases 3 and 5 have a phony edge with
// no inputs (case 5 beside an unrelated touch edge), and case 6 aliases a
// file that no edge produces. Only cases 4 and 5 are then built.
func phonyUseCase(f *buildTestFixture, i int) {
	f.t.Helper()
	switch i {
	case 1:
		f.assertParse("build a: phony b\nbuild b: touch\n")
	case 2:
		f.assertParse("rule touch\n  command = touch $out\nbuild a: phony b\nbuild b: touch\n")
	case 3:
		f.assertParse("build a: phony\n")
	case 4:
		f.assertParse("rule touch\n  command = touch $out\nbuild a: phony b\nbuild b: touch\n")
	case 5:
		f.assertParse("rule touch\n  command = touch $out\nbuild a: phony\nbuild b: touch\n")
	case 6:
		f.assertParse("rule touch\n  command = touch $out\nbuild a: phony b\n")
	}
}

func TestBuildTest_PhonyUseCase1(t *testing.T) {
	f := newBuildTestFixture(t)
	f.assertParse("rule touch\n  command = touch $out\n")
	phonyUseCase(f, 1)
}

func TestBuildTest_PhonyUseCase2(t *testing.T) {
	f := newBuildTestFixture(t)
	phonyUseCase(f, 2)
}

func TestBuildTest_PhonyUseCase3(t *testing.T) {
	f := newBuildTestFixture(t)
	phonyUseCase(f, 3)
}

func TestBuildTest_PhonyUseCase4(t *testing.T) {
	f := newBuildTestFixture(t)
	phonyUseCase(f, 4)
	f.addTarget("a")
	require.NoError(t, f.builder.Build())
}

func TestBuildTest_PhonyUseCase5(t *testing.T) {
	f := newBuildTestFixture(t)
	phonyUseCase(f, 5)
	f.addTarget("a")
	require.NoError(t, f.builder.Build())
}

func TestBuildTest_PhonyUseCase6(t *testing.T) {
	f := newBuildTestFixture(t)
	phonyUseCase(f, 6)
}

// buildWithLogTestFixture wires the builder's build log, exercising
// RecordCommand and the restat-change-detection codepaths against it.
type buildWithLogTestFixture struct {
	*buildTestFixture
	buildLog *BuildLog
}

func newBuildWithLogTestFixture(t *testing.T) *buildWithLogTestFixture {
	f := &buildWithLogTestFixture{buildTestFixture: newBuildTestFixture(t)}
	f.buildLog = NewBuildLog()
	f.builder.SetBuildLog(f.buildLog)
	return f
}

func (f *buildWithLogTestFixture) assertHash(expected string, actual uint64) {
	f.t.Helper()
	require.Equal(f.t, HashCommand(expected), actual)
}

func TestBuildWithLogTest_NotInLogButOnDisk(t *testing.T) {
	f := newBuildWithLogTestFixture(t)
	f.assertParse("build out1: cat in1\n")
	f.fs.Create("in1", "")
	f.fs.Create("out1", "")
	f.fs.Tick()
	f.addTarget("out1")
	require.False(t, f.builder.AlreadyUpToDate())
}

func TestBuildWithLogTest_RecordCommand(t *testing.T) {
	f := newBuildWithLogTestFixture(t)
	f.fs.Create("in1", "")
	f.fs.Create("in2", "")
	f.addTarget("cat1")
	require.NoError(t, f.builder.Build())

	entry := f.buildLog.LookupByOutput("cat1")
	require.NotNil(t, entry)
	f.assertHash("cat in1 > cat1", entry.CommandHash)
}

func TestBuildWithLogTest_RestatMissingFile(t *testing.T) {
	f := newBuildWithLogTestFixture(t)
	f.assertParse("rule true\n  command = true\n  restat = 1\nbuild out1: true in\n")
	f.fs.Create("in", "")
	f.addTarget("out1")
	require.NoError(t, f.builder.Build())
	require.Len(t, f.commandRunner.commandsRan, 1)
}

// buildDryRunFixture runs the baseline build with dry_run set: the builder
// skips restat and deps-log recording, while the fake command runner still
// records every command and applies its file effects.
type buildDryRunFixture struct {
	*buildTestFixture
}

func newBuildDryRunFixture(t *testing.T) *buildDryRunFixture {
	f := &buildDryRunFixture{buildTestFixture: newBuildTestFixture(t)}
	f.config.dry_run = true
	f.rebuildBuilder()
	return f
}

func TestBuildDryRun_AllCommandsShown(t *testing.T) {
	f := newBuildDryRunFixture(t)
	f.assertParse("rule true\n  command = touch $out\n  restat = 1\nbuild out1: true in\nbuild out2: true out1\n  restat = 1\nbuild out3: cat out2\n")
	f.fs.Create("in", "")
	f.fs.Create("out1", "")
	f.fs.Create("out2", "")
	f.fs.Create("out3", "")
	f.fs.Tick()
	f.fs.Create("in", "")

	f.addTarget("out3")
	require.NoError(t, f.builder.Build())
	require.Len(t, f.commandRunner.commandsRan, 3)
}

// buildWithQueryDepsLogTestFixture wires a DepsLog directly into the
// Builder (rather than via SetBuildLog), matching how -t query uses it.
type buildWithQueryDepsLogTestFixture struct {
	t       *testing.T
	state   State
	config  BuildConfig
	fs      VirtualFileSystem
	runner  *fakeCommandRunner
	status  StatusPrinter
	log     *DepsLog
	builder *Builder
}

func newBuildWithQueryDepsLogTestFixture(t *testing.T) *buildWithQueryDepsLogTestFixture {
	CreateTempDirAndEnter(t)
	f := &buildWithQueryDepsLogTestFixture{
		t:      t,
		state:  *NewState(),
		config: NewBuildConfig(),
		fs:     NewVirtualFileSystem(),
		log:    NewDepsLog(),
	}
	require.NoError(t, f.log.OpenForWrite("ninja_deps"))
	f.runner = newFakeCommandRunner(t, &f.fs)
	f.status = NewStatusPrinter(&f.config)
	f.builder = NewBuilder(&f.state, &f.config, nil, f.log, &f.fs, &f.status, 0)
	f.builder.command_runner_ = f.runner
	t.Cleanup(func() { f.log.Close() })
	return f
}

func (f *buildWithQueryDepsLogTestFixture) assertParse(input string) {
	f.t.Helper()
	parser := NewManifestParser(&f.state, nil, ManifestParserOptions{})
	err := ""
	require.True(f.t, parser.ParseTest(input, &err))
	require.Empty(f.t, err)
}

func TestBuildWithQueryDepsLogTest_Straightforward(t *testing.T) {
	f := newBuildWithQueryDepsLogTestFixture(t)
	f.assertParse("rule cc\n  command = cc\n  deps = gcc\n  depfile = $out.d\nbuild out: cc\n")
	edge := f.state.Edges[len(f.state.Edges)-1]
	depNode := f.state.GetNode("dep.h", 0)
	require.NoError(t, f.log.RecordDeps(f.state.GetNode("out", 0), 1, []*Node{depNode}))

	_, err := f.builder.AddTargetName("out")
	require.NoError(t, err)
	require.Equal(t, 2, len(edge.Inputs))
}

// buildWithDepsLogTestFixture exercises deps-log persistence across
// independently constructed State/Builder instances, the way a real build
// followed by a rebuild from a fresh process would.
type buildWithDepsLogTestFixture struct {
	t      *testing.T
	config BuildConfig
	fs     VirtualFileSystem
	runner *fakeCommandRunner
	status StatusPrinter
}

func newBuildWithDepsLogTestFixture(t *testing.T) *buildWithDepsLogTestFixture {
	CreateTempDirAndEnter(t)
	f := &buildWithDepsLogTestFixture{
		config: NewBuildConfig(),
		fs:     NewVirtualFileSystem(),
		t:      t,
	}
	f.runner = newFakeCommandRunner(t, &f.fs)
	f.status = NewStatusPrinter(&f.config)
	return f
}

func (f *buildWithDepsLogTestFixture) newBuilder(state *State, buildLog *BuildLog, depsLog *DepsLog) *Builder {
	b := NewBuilder(state, &f.config, buildLog, depsLog, &f.fs, &f.status, 0)
	b.command_runner_ = f.runner
	return b
}

func (f *buildWithDepsLogTestFixture) assertParse(state *State, input string) {
	f.t.Helper()
	parser := NewManifestParser(state, nil, ManifestParserOptions{})
	err := ""
	require.True(f.t, parser.ParseTest(input, &err))
	require.Empty(f.t, err)
}

func TestBuildWithDepsLogTest_Straightforward(t *testing.T) {
	f := newBuildWithDepsLogTestFixture(t)
	const manifest = "rule cc\n  command = cc\n  deps = gcc\n  depfile = $out.d\nbuild out: cc\n"

	{
		state := NewState()
		f.assertParse(state, manifest)

		depsLog := NewDepsLog()
		require.NoError(t, depsLog.OpenForWrite("ninja_deps"))

		builder := f.newBuilder(state, nil, depsLog)
		f.fs.Create("out.d", "out: header.h\n")
		_, err := builder.AddTargetName("out")
		require.NoError(t, err)
		require.NoError(t, builder.Build())
		require.NoError(t, depsLog.Close())
	}

	{
		state := NewState()
		f.assertParse(state, manifest)

		depsLog := NewDepsLog()
		_, err := depsLog.Load("ninja_deps", state)
		require.NoError(t, err)
		require.NoError(t, depsLog.OpenForWrite("ninja_deps"))

		builder := f.newBuilder(state, nil, depsLog)
		_, err = builder.AddTargetName("out")
		require.NoError(t, err)
		require.True(t, builder.AlreadyUpToDate())
		require.NoError(t, depsLog.Close())

		outNode := state.GetNode("out", 0)
		entry := depsLog.GetDeps(outNode)
		require.NotNil(t, entry)
		require.Equal(t, 1, len(entry.Nodes))
		require.Equal(t, "header.h", entry.Nodes[0].Path())
	}
}

func TestBuildWithDepsLogTest_DepFileParseError(t *testing.T) {
	f := newBuildWithDepsLogTestFixture(t)
	state := NewState()
	f.assertParse(state, "rule cc\n  command = cc\n  deps = gcc\n  depfile = $out.d\nbuild out: cc\n")

	depsLog := NewDepsLog()
	require.NoError(t, depsLog.OpenForWrite("ninja_deps"))
	defer depsLog.Close()

	builder := f.newBuilder(state, nil, depsLog)
	f.fs.Create("out.d", "this is not a valid depfile\n")
	_, err := builder.AddTargetName("out")
	require.NoError(t, err)
	err = builder.Build()
	require.Error(t, err)
}
