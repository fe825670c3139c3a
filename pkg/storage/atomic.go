// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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

package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic replaces path with what fn writes. The content goes to a temp
// file in the same directory, is synced, then renamed over path, and the
// directory is synced so the rename survives power loss. Readers see either
// the old file or the complete new one. The directory must exist.
func WriteAtomic(path string, perm os.FileMode, fn func(io.Writer) (int64, error)) (int64, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("failed to create %q: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	n, err := fn(tmp)
	if err != nil {
		tmp.Close()
		return n, fmt.Errorf("failed to write %q: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return n, fmt.Errorf("failed to chmod %q: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return n, fmt.Errorf("failed to sync %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("failed to close %q: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return n, fmt.Errorf("failed to replace %q: %w", path, err)
	}
	return n, syncDir(dir)
}

// WriteFileAtomic is WriteAtomic for an in-memory buffer.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	_, err := WriteAtomic(path, perm, func(w io.Writer) (int64, error) {
		return io.Copy(w, bytes.NewReader(data))
	})
	return err
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("failed to sync %q: %w", dir, err)
	}
	return nil
}
