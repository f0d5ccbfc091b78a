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
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// TimeStamp is a file modification time in nanoseconds since the Unix
// epoch. Sentinel values: -1 means "stat failed", 0 means "doesn't exist".
type TimeStamp int64

// ReadFileStatus is the result of FileReader.ReadFile.
type ReadFileStatus int

const (
	ReadOkay ReadFileStatus = iota
	ReadNotFound
	ReadOtherError
)

// FileReader is the minimal interface needed to read a manifest or depfile
// off disk; narrow so tests can substitute an in-memory filesystem.
type FileReader interface {
	ReadFile(path string) (contents string, status ReadFileStatus, err error)
}

// DiskInterface is everything the graph and build driver need from the
// filesystem. Abstract so tests can mock it out.
type DiskInterface interface {
	FileReader

	// Stat returns a file's mtime, 0 if it doesn't exist, or an error.
	Stat(path string) (TimeStamp, error)
	WriteFile(path, contents string) error
	MakeDir(path string) error
	// RemoveFile removes path. It does not error if the path is already gone.
	RemoveFile(path string) error
}

// dirName returns the directory portion of path, using forward slashes
// only; canonicalized manifest paths never carry backslashes.
func dirName(path string) string {
	slash := strings.LastIndexByte(path, '/')
	if slash < 0 {
		return ""
	}
	for slash > 0 && path[slash-1] == '/' {
		slash--
	}
	return path[:slash]
}

// makeDirs creates path's parent directory and all of its ancestors, like
// `mkdir -p $(dirname path)`.
func makeDirs(d DiskInterface, path string) error {
	dir := dirName(path)
	if dir == "" {
		return nil
	}
	mtime, err := d.Stat(dir)
	if err != nil {
		return err
	}
	if mtime > 0 {
		return nil
	}
	if err := makeDirs(d, dir); err != nil {
		return err
	}
	return d.MakeDir(dir)
}

// RealDiskInterface is the DiskInterface implementation that actually hits
// the filesystem.
type RealDiskInterface struct{}

// NewRealDiskInterface returns a DiskInterface backed by the real
// filesystem.
func NewRealDiskInterface() *RealDiskInterface {
	return &RealDiskInterface{}
}

// Stat returns path's mtime, 0 if path doesn't exist.
func (r *RealDiskInterface) Stat(path string) (TimeStamp, error) {
	defer metricRecord("node stat")()
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return -1, err
	}
	mtime := info.ModTime().UnixNano()
	if mtime == 0 {
		// Some environments (e.g. containers under Flatpak) report a zero
		// mtime; treat that as "exists" rather than colliding with the
		// sentinel for "doesn't exist".
		mtime = 1
	}
	return TimeStamp(mtime), nil
}

// WriteFile truncates (or creates) path and writes contents to it.
func (r *RealDiskInterface) WriteFile(path, contents string) error {
	if err := os.WriteFile(path, []byte(contents), 0666); err != nil {
		logrus.WithError(err).WithField("path", path).Error("write file")
		return err
	}
	return nil
}

// MakeDir creates path, tolerating it already existing.
func (r *RealDiskInterface) MakeDir(path string) error {
	if err := os.Mkdir(path, 0777); err != nil && !os.IsExist(err) {
		logrus.WithError(err).WithField("path", path).Error("mkdir")
		return err
	}
	return nil
}

// MakeDirs creates path's parent directories, like `mkdir -p`.
func (r *RealDiskInterface) MakeDirs(path string) error {
	return makeDirs(r, path)
}

// ReadFile reads path in full.
func (r *RealDiskInterface) ReadFile(path string) (string, ReadFileStatus, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ReadNotFound, err
		}
		return "", ReadOtherError, err
	}
	return string(contents), ReadOkay, nil
}

// RemoveFile removes path (file or directory), tolerating it already being
// gone.
func (r *RealDiskInterface) RemoveFile(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).WithField("path", path).Error("remove")
		return err
	}
	return nil
}
