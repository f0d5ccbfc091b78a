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

//go:build windows
// +build windows

package anvil

import "fmt"

// GNU make's jobserver protocol is POSIX pipe/FIFO based; there is no
// inherited-descriptor equivalent on Windows, so a named auth string always
// fails to open here and NewJobserverClient falls back to the no-op client.
func newPlatformJobserver(auth jobserverAuth) (Jobserver, error) {
	return nil, fmt.Errorf("jobserver: not supported on windows")
}
