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
	"runtime"
	"testing"

	"github.com/mattn/go-isatty"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-dependent, posix only")
	}
}

func runToCompletion(subprocs SubprocessSet, subproc Subprocess) {
	for !subproc.Done() {
		subprocs.DoWork()
	}
}

func TestSubprocess_BadCommandStderr(t *testing.T) {
	skipOnWindows(t)
	subprocs := NewSubprocessSet()
	defer subprocs.Clear()

	subproc := subprocs.Add("ninja_no_such_command", false)
	require.NotNil(t, subproc)
	runToCompletion(subprocs, subproc)

	require.Equal(t, ExitFailure, subproc.Finish())
	require.NotEmpty(t, subproc.GetOutput())
}

func TestSubprocess_InterruptChild(t *testing.T) {
	skipOnWindows(t)
	subprocs := NewSubprocessSet()
	defer subprocs.Clear()

	subproc := subprocs.Add("kill -INT $$", false)
	require.NotNil(t, subproc)
	runToCompletion(subprocs, subproc)

	require.Equal(t, ExitInterrupted, subproc.Finish())
}

func TestSubprocess_InterruptChildWithSigTerm(t *testing.T) {
	skipOnWindows(t)
	subprocs := NewSubprocessSet()
	defer subprocs.Clear()

	subproc := subprocs.Add("kill -TERM $$", false)
	require.NotNil(t, subproc)
	runToCompletion(subprocs, subproc)

	require.Equal(t, ExitInterrupted, subproc.Finish())
}

func TestSubprocess_InterruptChildWithSigHup(t *testing.T) {
	skipOnWindows(t)
	subprocs := NewSubprocessSet()
	defer subprocs.Clear()

	subproc := subprocs.Add("kill -HUP $$", false)
	require.NotNil(t, subproc)
	runToCompletion(subprocs, subproc)

	require.Equal(t, ExitInterrupted, subproc.Finish())
}

func TestSubprocess_Console(t *testing.T) {
	skipOnWindows(t)
	if !isatty.IsTerminal(0) || !isatty.IsTerminal(1) || !isatty.IsTerminal(2) {
		t.Skip("not attached to a console")
	}
	subprocs := NewSubprocessSet()
	defer subprocs.Clear()

	subproc := subprocs.Add("test -t 0 -a -t 1 -a -t 2", true)
	require.NotNil(t, subproc)
	runToCompletion(subprocs, subproc)

	require.Equal(t, ExitSuccess, subproc.Finish())
}

func TestSubprocess_SetWithSingle(t *testing.T) {
	skipOnWindows(t)
	subprocs := NewSubprocessSet()
	defer subprocs.Clear()

	subproc := subprocs.Add("ls /", false)
	require.NotNil(t, subproc)
	runToCompletion(subprocs, subproc)

	require.Equal(t, ExitSuccess, subproc.Finish())
	require.NotEmpty(t, subproc.GetOutput())
	require.Equal(t, 1, subprocs.Finished())
}

func TestSubprocess_SetWithMulti(t *testing.T) {
	skipOnWindows(t)
	subprocs := NewSubprocessSet()
	defer subprocs.Clear()

	commands := []string{"ls /", "id -u", "pwd"}
	procs := make([]Subprocess, len(commands))
	for i, c := range commands {
		procs[i] = subprocs.Add(c, false)
		require.NotNil(t, procs[i])
	}

	require.Equal(t, len(commands), subprocs.Running())
	for _, p := range procs {
		require.False(t, p.Done())
		require.Empty(t, p.GetOutput())
	}

	done := func() bool {
		for _, p := range procs {
			if !p.Done() {
				return false
			}
		}
		return true
	}
	for !done() {
		require.Greater(t, subprocs.Running(), 0)
		subprocs.DoWork()
	}

	require.Equal(t, 0, subprocs.Running())
	require.Equal(t, len(commands), subprocs.Finished())

	for _, p := range procs {
		require.Equal(t, ExitSuccess, p.Finish())
		require.NotEmpty(t, p.GetOutput())
	}
}

func TestSubprocess_ReadStdin(t *testing.T) {
	skipOnWindows(t)
	subprocs := NewSubprocessSet()
	defer subprocs.Clear()

	subproc := subprocs.Add("cat -", false)
	require.NotNil(t, subproc)
	runToCompletion(subprocs, subproc)

	require.Equal(t, ExitSuccess, subproc.Finish())
	require.Equal(t, 1, subprocs.Finished())
}
