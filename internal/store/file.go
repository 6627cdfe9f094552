package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reelbot/generic"
	"reelbot/internal/sync_"
)

const (
	usersFilename     = "users.txt"
	accessLogFilename = "access.txt"
)

// FileStore persists identities as line-oriented text, one identity per line:
// the users list is read fully and rewritten fully on mutation, the access log
// is append-only.
type FileStore struct {
	paths *sync_.Mutexed[filePaths]
}

type filePaths struct {
	users     string
	accessLog string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	s := &FileStore{
		paths: sync_.NewMutexed(filePaths{
			users:     filepath.Join(dir, usersFilename),
			accessLog: filepath.Join(dir, accessLogFilename),
		}),
	}
	return s, nil
}

func (s *FileStore) IsAuthorized(identity string) (authorized bool, err error) {
	identity = NormalizeHandle(identity)
	if identity == "" {
		return false, nil
	}
	err = s.paths.Locked(func(p filePaths) error {
		users, err := readLines(p.users)
		if err != nil {
			return err
		}
		authorized = generic.NewSet(users...).Contains(identity)
		return nil
	})
	return authorized, err
}

func (s *FileStore) AddUser(identity string) (added bool, err error) {
	identity = NormalizeHandle(identity)
	if identity == "" {
		return false, nil
	}
	err = s.paths.Locked(func(p filePaths) error {
		users, err := readLines(p.users)
		if err != nil {
			return err
		}
		if generic.NewSet(users...).Contains(identity) {
			return nil
		}
		if err := writeLines(p.users, append(users, identity)); err != nil {
			return err
		}
		added = true
		return nil
	})
	return added, err
}

func (s *FileStore) RemoveUser(identity string) (removed bool, err error) {
	identity = NormalizeHandle(identity)
	if identity == "" {
		return false, nil
	}
	err = s.paths.Locked(func(p filePaths) error {
		users, err := readLines(p.users)
		if err != nil {
			return err
		}
		remaining := make([]string, 0, len(users))
		for _, u := range users {
			if u != identity {
				remaining = append(remaining, u)
			}
		}
		if len(remaining) == len(users) {
			return nil
		}
		if err := writeLines(p.users, remaining); err != nil {
			return err
		}
		removed = true
		return nil
	})
	return removed, err
}

func (s *FileStore) ListUsers() (users []string, err error) {
	err = s.paths.Locked(func(p filePaths) error {
		users, err = readLines(p.users)
		return err
	})
	return users, err
}

func (s *FileStore) LogAccess(identity string) error {
	identity = NormalizeHandle(identity)
	if identity == "" {
		return nil
	}
	return s.paths.Locked(func(p filePaths) error {
		logged, err := readLines(p.accessLog)
		if err != nil {
			return err
		}
		if generic.NewSet(logged...).Contains(identity) {
			return nil
		}
		return appendLine(p.accessLog, identity)
	})
}

func (s *FileStore) AccessLog() (logged []string, err error) {
	err = s.paths.Locked(func(p filePaths) error {
		logged, err = readLines(p.accessLog)
		return err
	})
	return logged, err
}

func (s *FileStore) Close() error {
	return nil
}

// readLines reads every non-empty line of the file. A missing file is an
// empty store, not an error.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer f.Close()
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return lines, nil
}

func writeLines(path string, lines []string) error {
	data := strings.Join(lines, "\n")
	if data != "" {
		data += "\n"
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

func appendLine(path string, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
