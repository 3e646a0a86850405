// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package helpers

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// FSUsage holds the on-disk usage stats for a given filesystem, in bytes.
type FSUsage struct {
	TotalBytes uint64
	FreeBytes  uint64 // available to non-root users
}

// DiskUsage returns FSUsage for the filesystem that contains path.
func DiskUsage(path string) (FSUsage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return FSUsage{}, err
	}
	return FSUsage{
		TotalBytes: st.Blocks * uint64(st.Bsize),
		FreeBytes:  st.Bavail * uint64(st.Bsize),
	}, nil
}

// InsufficientSpaceError reports that an output is unlikely to fit.
type InsufficientSpaceError struct {
	Dir       string
	NeedBytes uint64
	FreeBytes uint64
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("%s has %d bytes free, output needs at least %d", e.Dir, e.FreeBytes, e.NeedBytes)
}

// CheckOutputSpace compares the free space of the directory that will hold
// outputPath with a lower bound on the bytes the output will need. It returns
// an *InsufficientSpaceError when the bound does not fit.
func CheckOutputSpace(outputPath string, needBytes uint64) error {
	dir := filepath.Dir(outputPath)
	usage, err := DiskUsage(dir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem of %s: %w", dir, err)
	}
	if usage.FreeBytes < needBytes {
		return &InsufficientSpaceError{Dir: dir, NeedBytes: needBytes, FreeBytes: usage.FreeBytes}
	}
	return nil
}

// FileSize returns the size of the file at path.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
