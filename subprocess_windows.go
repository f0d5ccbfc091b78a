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

//go:build windows
// +build windows

package anvil

import (
	"context"
	"os/exec"
	"strconv"
	"syscall"
)

func createCmd(ctx context.Context, c string, useConsole, enableSkipShell bool) *exec.Cmd {
	ex := "cmd.exe"
	args := []string{"/c", c}
	var cmd *exec.Cmd
	if useConsole {
		cmd = exec.Command(ex, args...)
	} else {
		cmd = exec.CommandContext(ctx, ex, args...)
	}

	// Ninja handles ctrl-c itself, except for subprocesses in console pools;
	// put everything else into its own process group so a ctrl-c delivered
	// to us doesn't also reach them directly.
	flags := uint32(0)
	if !useConsole {
		flags = syscall.CREATE_NEW_PROCESS_GROUP
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: flags}
	return cmd
}

// killProcessGroup terminates pid's whole process group. Windows has no
// direct pid-group-kill syscall reachable from Go without attaching a
// console, so this shells out to taskkill /T, which walks the same
// process tree.
func killProcessGroup(pid int) error {
	return exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(pid)).Run()
}
