/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	BackupsDirName = "backups"
	fileExt        = ".json"
	backupExt      = ".bak"
)

// FileSlot stores each key as <Dir>/<key>.json. Writes go to a temp file
// that is synced and renamed over the target; the previous value is copied
// to <Dir>/backups/<key>.json.<stamp>.bak first.
type FileSlot struct {
	Dir string
	// BackupKeep caps the number of backups per key; zero keeps all.
	BackupKeep int
}

// NewFileSlot creates dir if needed and returns a slot rooted there.
func NewFileSlot(dir string, backupKeep int) (*FileSlot, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileSlot{Dir: dir, BackupKeep: backupKeep}, nil
}

// Path returns the file backing key.
func (s *FileSlot) Path(key string) string { return filepath.Join(s.Dir, key+fileExt) }

func (s *FileSlot) Get(key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *FileSlot) Put(key string, value []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	target := s.Path(key)
	bdir := filepath.Join(s.Dir, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(target); statErr == nil {
		bname := fmt.Sprintf("%s%s.%s%s", key, fileExt, backupStamp(time.Now()), backupExt)
		if err := copyFile(target, filepath.Join(bdir, bname)); err != nil {
			return fmt.Errorf("backup current value: %w", err)
		}
		s.pruneBackups(key)
	}

	temp := filepath.Join(s.Dir, fmt.Sprintf(".%s%s.tmp-%d-%d", key, fileExt, os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, value); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(temp, target); err != nil {
		// Windows refuses to rename over an existing file.
		_ = os.Remove(target)
		if rerr := os.Rename(temp, target); rerr != nil {
			_ = os.Remove(temp)
			return fmt.Errorf("replace %s: %w", filepath.Base(target), rerr)
		}
	}
	return nil
}

func (s *FileSlot) Delete(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.Path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Backups lists the backup files of key, oldest first.
func (s *FileSlot) Backups(key string) ([]string, error) {
	bdir := filepath.Join(s.Dir, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := key + fileExt + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, backupExt) {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // the stamp sorts lexicographically
	return out, nil
}

// LatestBackup returns the content of the newest backup of key.
func (s *FileSlot) LatestBackup(key string) ([]byte, string, error) {
	list, err := s.Backups(key)
	if err != nil {
		return nil, "", err
	}
	if len(list) == 0 {
		return nil, "", ErrNotFound
	}
	latest := list[len(list)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, "", fmt.Errorf("read latest backup: %w", err)
	}
	return b, latest, nil
}

func (s *FileSlot) pruneBackups(key string) {
	if s.BackupKeep <= 0 {
		return
	}
	list, err := s.Backups(key)
	if err != nil || len(list) <= s.BackupKeep {
		return
	}
	for _, p := range list[:len(list)-s.BackupKeep] {
		_ = os.Remove(p)
	}
}

func backupStamp(t time.Time) string { return t.UTC().Format("20060102-150405.000000000") }

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies src to dst, overwriting dst.
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = sf.Close() }()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
