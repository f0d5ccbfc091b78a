// Copyright 2023 Google Inc. All Rights Reserved.
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

//go:build !windows
// +build !windows

package anvil

import (
	"fmt"
	"os"
	"syscall"
)

// fifoJobserver holds the two ends of the pipe (or named FIFO) a parent
// make process handed us: reading a byte from rfd claims a token, writing
// one to wfd returns it. rfd is put in O_NONBLOCK mode at the syscall
// level, bypassing Go's netpoller-backed os.File.Read, so Acquire never
// parks a goroutine waiting on the parent.
type fifoJobserver struct {
	r, w *os.File
	rfd  int
}

func newPlatformJobserver(auth jobserverAuth) (Jobserver, error) {
	switch auth.kind {
	case jobserverAuthFDs:
		r := os.NewFile(uintptr(auth.readFD), "jobserver-r")
		w := os.NewFile(uintptr(auth.writeFD), "jobserver-w")
		if r == nil || w == nil {
			return nil, fmt.Errorf("jobserver: invalid descriptor pair %d,%d", auth.readFD, auth.writeFD)
		}
		return newFIFOJobserver(r, w)
	case jobserverAuthFIFO:
		r, err := os.OpenFile(auth.path, os.O_RDONLY, 0)
		if err != nil {
			return nil, fmt.Errorf("jobserver: open fifo for read: %w", err)
		}
		w, err := os.OpenFile(auth.path, os.O_WRONLY, 0)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("jobserver: open fifo for write: %w", err)
		}
		return newFIFOJobserver(r, w)
	default:
		return nil, fmt.Errorf("jobserver: unrecognized auth")
	}
}

func newFIFOJobserver(r, w *os.File) (*fifoJobserver, error) {
	// Fd() switches the descriptor to blocking mode as far as the Go
	// runtime is concerned (it stops polling it), which is exactly what we
	// want: we manage O_NONBLOCK and the read/write syscalls ourselves
	// below instead of going through os.File's poller-integrated Read.
	rfd := int(r.Fd())
	if err := syscall.SetNonblock(rfd, true); err != nil {
		return nil, fmt.Errorf("jobserver: set nonblocking: %w", err)
	}
	return &fifoJobserver{r: r, w: w, rfd: rfd}, nil
}

func (j *fifoJobserver) Acquire() bool {
	var buf [1]byte
	n, err := syscall.Read(j.rfd, buf[:])
	return err == nil && n == 1
}

func (j *fifoJobserver) Release() {
	var buf [1]byte
	buf[0] = '+'
	// Best-effort: if the parent's read end is gone there is nothing a
	// client can do about it, and we're likely exiting anyway.
	syscall.Write(int(j.w.Fd()), buf[:])
}

func (j *fifoJobserver) Close() error {
	rerr := j.r.Close()
	werr := j.w.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}
