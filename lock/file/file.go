// Package file implements lock.Store on a local or shared directory.
//
// Every lock lives in its own <canonical-key>.lock file. Acquisition
// creates the file with O_EXCL, so of two processes racing for the same
// key exactly one wins. Reads take a shared and rewrites an exclusive
// advisory lock on the file for the duration of the operation. A rewrite
// goes to a temporary file that is renamed over the record, so a failed
// write leaves the previous record in place.
package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/enverbisevac/locker/errors"
	"github.com/enverbisevac/locker/lock"
	"github.com/enverbisevac/locker/slug"
	"github.com/gofrs/flock"
)

const extension = ".lock"

var _ lock.Store = (*Store)(nil)

// Store implements lock.Store using one file per lock.
type Store struct {
	config Config
}

// New creates a store rooted at dir. The directory is created when it is
// missing and must be writable.
func New(dir string, options ...Option) (*Store, error) {
	config := Config{
		Dir:         dir,
		FilePerm:    0o644,
		DirPerm:     0o755,
		LockTimeout: time.Second,
		RetryDelay:  10 * time.Millisecond,
	}
	for _, opt := range options {
		opt.Apply(&config)
	}

	if strings.TrimSpace(config.Dir) == "" {
		return nil, errors.InvalidConfiguration(nil, "lock directory is required")
	}
	config.Dir = filepath.Clean(config.Dir)

	if err := os.MkdirAll(config.Dir, config.DirPerm); err != nil {
		return nil, errors.InvalidConfiguration(err, "cannot create lock directory %q", config.Dir)
	}

	info, err := os.Stat(config.Dir)
	if err != nil {
		return nil, errors.InvalidConfiguration(err, "cannot stat lock directory %q", config.Dir)
	}
	if !info.IsDir() {
		return nil, errors.InvalidConfiguration(nil, "%q is not a directory", config.Dir)
	}

	check, err := os.CreateTemp(config.Dir, ".writable-*")
	if err != nil {
		return nil, errors.InvalidConfiguration(err, "directory %q is not writable", config.Dir)
	}
	_ = check.Close()
	_ = os.Remove(check.Name())

	return &Store{config: config}, nil
}

// Dir returns the directory holding the lock files.
func (s *Store) Dir() string {
	return s.config.Dir
}

func (s *Store) path(key string) string {
	return filepath.Join(s.config.Dir, key+extension)
}

func (s *Store) Acquire(ctx context.Context, l *lock.Lock) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := lock.Marshal(l)
	if err != nil {
		return err
	}

	key := l.CanonicalKey()
	path := s.path(key)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, s.config.FilePerm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return errors.AlreadyExists("lock ${%q} already exists", key)
		}
		return fmt.Errorf("file: acquire %q: %w", key, err)
	}

	_, werr := f.Write(data)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("file: write %q: %w", key, err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(s.path(slug.Make(key)))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("file: exists: %w", err)
}

func (s *Store) Get(ctx context.Context, key string) (*lock.Lock, error) {
	key = slug.Make(key)

	var l *lock.Lock
	err := s.withLock(ctx, key, false, func(path string) error {
		var err error
		l, err = s.read(key, path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Store) Update(ctx context.Context, key string, payload any) error {
	key = slug.Make(key)

	return s.withLock(ctx, key, true, func(path string) error {
		l, err := s.read(key, path)
		if err != nil {
			return err
		}
		if err := l.Update(payload); err != nil {
			return err
		}

		data, err := lock.Marshal(l)
		if err != nil {
			return err
		}

		return s.replace(key, path, data)
	})
}

// writeRecord writes data to f and flushes it to disk.
var writeRecord = func(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// replace atomically swaps the record in path for data. The caller holds
// the exclusive lock of path.
func (s *Store) replace(key, path string, data []byte) error {
	tmp, err := os.CreateTemp(s.config.Dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("file: update %q: %w", key, err)
	}

	werr := writeRecord(tmp, data)
	cerr := tmp.Close()
	err = errors.Join(werr, cerr)
	if err == nil {
		err = os.Chmod(tmp.Name(), s.config.FilePerm)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("file: update %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	key = slug.Make(key)

	return s.withLock(ctx, key, true, func(path string) error {
		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return errors.NotFound("lock ${%q} not found", key)
			}
			return fmt.Errorf("file: delete %q: %w", key, err)
		}
		return nil
	})
}

func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	keys, err := s.keys()
	if err != nil {
		return err
	}

	var errs []error
	for _, key := range keys {
		if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("file: clear: %w", err)
	}
	return nil
}

// List returns the records ordered by canonical key. Files removed while
// listing are skipped.
func (s *Store) List(ctx context.Context) ([]*lock.Lock, error) {
	keys, err := s.keys()
	if err != nil {
		return nil, err
	}

	locks := make([]*lock.Lock, 0, len(keys))
	for _, key := range keys {
		l, err := s.Get(ctx, key)
		if errors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		locks = append(locks, l)
	}
	return locks, nil
}

// keys returns the canonical keys of all lock files, sorted by name.
func (s *Store) keys() ([]string, error) {
	entries, err := os.ReadDir(s.config.Dir)
	if err != nil {
		return nil, fmt.Errorf("file: read dir: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, extension) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, extension))
	}
	return keys, nil
}

// read loads the record stored in path. An empty file belongs to an
// acquisition that has not written its record yet and reads as missing.
func (s *Store) read(key, path string) (*lock.Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.NotFound("lock ${%q} not found", key)
		}
		return nil, fmt.Errorf("file: read %q: %w", key, err)
	}
	if len(data) == 0 {
		return nil, errors.NotFound("lock ${%q} not found", key)
	}
	return lock.Unmarshal(data)
}

// withLock runs fn while holding the advisory lock of the key's file. The
// lock file is opened without O_CREATE, so a missing key surfaces as
// NotFound instead of an empty file being created. When the file was
// replaced or removed while waiting, the lock is taken again on whatever
// path now holds. The lock is released whatever fn returns.
func (s *Store) withLock(ctx context.Context, key string, exclusive bool, fn func(path string) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := s.path(key)

	flag := os.O_RDONLY
	if exclusive {
		flag = os.O_RDWR
	}

	lockCtx := ctx
	if s.config.LockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, s.config.LockTimeout)
		defer cancel()
	}

	for {
		before, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return errors.NotFound("lock ${%q} not found", key)
			}
			return fmt.Errorf("file: stat %q: %w", key, err)
		}

		fl := flock.New(path, flock.SetFlag(flag))

		locked, err := s.tryLock(lockCtx, fl, exclusive)
		if err != nil {
			switch {
			case errors.Is(err, fs.ErrNotExist):
				continue
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				return errors.LockingFailure(err, "error locking file ${%q}", key)
			}
		}
		if !locked {
			return errors.LockingFailure(nil, "error locking file ${%q}", key)
		}

		after, err := os.Stat(path)
		if err == nil && os.SameFile(before, after) {
			defer func() {
				_ = fl.Unlock()
			}()
			return fn(path)
		}

		_ = fl.Unlock()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("file: stat %q: %w", key, err)
		}
	}
}

func (s *Store) tryLock(ctx context.Context, fl *flock.Flock, exclusive bool) (bool, error) {
	if s.config.LockTimeout <= 0 {
		if exclusive {
			return fl.TryLock()
		}
		return fl.TryRLock()
	}

	if exclusive {
		return fl.TryLockContext(ctx, s.config.RetryDelay)
	}
	return fl.TryRLockContext(ctx, s.config.RetryDelay)
}
