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

package anvil

import (
	"os"
	"strconv"
	"strings"
)

// Jobserver is a cooperative concurrency-token source shared with a parent
// build tool, typically GNU make. Every client (including this one) always
// has one implicit token for free; Acquire claims a token beyond that one.
// It never blocks: a failed Acquire just means the edge stays queued rather
// than risking a deadlock against the parent holding the other end.
type Jobserver interface {
	// Acquire attempts to claim one token. Returns false if none is
	// available right now.
	Acquire() bool
	// Release returns a token previously claimed by a successful Acquire.
	Release()
	// Close releases the underlying descriptors, if any were opened.
	Close() error
}

// noopJobserver is used when the environment carries no jobserver, or when
// one was named but couldn't be opened; every token request just succeeds,
// so callers fall back to -j/parallelism accounting alone.
type noopJobserver struct{}

func (noopJobserver) Acquire() bool { return true }
func (noopJobserver) Release()      {}
func (noopJobserver) Close() error  { return nil }

type jobserverAuthKind int

const (
	jobserverAuthNone jobserverAuthKind = iota
	jobserverAuthFDs
	jobserverAuthFIFO
)

// jobserverAuth is the descriptor pair or named-pipe path extracted from a
// --jobserver-auth= or --jobserver-fds= MAKEFLAGS token.
type jobserverAuth struct {
	kind    jobserverAuthKind
	readFD  int
	writeFD int
	path    string
}

// parseMakeflagsAuth scans a MAKEFLAGS value for a jobserver flag and
// extracts its descriptor pair or FIFO path. GNU make has shipped two
// spellings over the years (--jobserver-fds=R,W, then --jobserver-auth=
// which additionally allows "fifo:PATH" for named-pipe auth); both are
// accepted. Returns jobserverAuthNone if neither is present, which is the
// ordinary case of a build invoked outside of make.
func parseMakeflagsAuth(makeflags string) jobserverAuth {
	for _, tok := range strings.Fields(makeflags) {
		var value string
		switch {
		case strings.HasPrefix(tok, "--jobserver-auth="):
			value = strings.TrimPrefix(tok, "--jobserver-auth=")
		case strings.HasPrefix(tok, "--jobserver-fds="):
			value = strings.TrimPrefix(tok, "--jobserver-fds=")
		default:
			continue
		}
		if path, ok := strings.CutPrefix(value, "fifo:"); ok {
			return jobserverAuth{kind: jobserverAuthFIFO, path: path}
		}
		parts := strings.SplitN(value, ",", 2)
		if len(parts) != 2 {
			continue
		}
		r, errR := strconv.Atoi(parts[0])
		w, errW := strconv.Atoi(parts[1])
		if errR != nil || errW != nil {
			continue
		}
		return jobserverAuth{kind: jobserverAuthFDs, readFD: r, writeFD: w}
	}
	return jobserverAuth{}
}

// NewJobserverClient inspects MAKEFLAGS and returns a client bound to the
// inherited jobserver, or a no-op client when the build wasn't launched
// under one (or the descriptors named there couldn't be opened).
func NewJobserverClient() Jobserver {
	auth := parseMakeflagsAuth(os.Getenv("MAKEFLAGS"))
	if auth.kind == jobserverAuthNone {
		return noopJobserver{}
	}
	js, err := newPlatformJobserver(auth)
	if err != nil {
		Warning("jobserver unavailable, ignoring: %s", err)
		return noopJobserver{}
	}
	return js
}
