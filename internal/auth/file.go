package auth

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/natefinch/atomic"
)

// LoadFile reads a user file of "user:argon2id-hash" lines. Blank lines and
// lines starting with # are ignored.
func LoadFile(path string) (map[string]*Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open auth file: %w", err)
	}
	defer f.Close()
	return parseUsers(f)
}

func parseUsers(r io.Reader) (map[string]*Hash, error) {
	users := make(map[string]*Hash)
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		user, hash, skip, err := parseLine(scanner.Text(), lineNum)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		if _, exists := users[user]; exists {
			return nil, fmt.Errorf("duplicate user %q in auth file", user)
		}
		parsed, err := ParseHash(hash)
		if err != nil {
			return nil, fmt.Errorf("invalid auth line %d: %w", lineNum, err)
		}
		users[user] = parsed
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read auth file: %w", err)
	}
	return users, nil
}

func parseLine(raw string, lineNum int) (user, hash string, skip bool, err error) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", true, nil
	}
	user, hash, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", false, fmt.Errorf("invalid auth line %d: expected user:hash", lineNum)
	}
	user = strings.TrimSpace(user)
	hash = strings.TrimSpace(hash)
	if user == "" || hash == "" {
		return "", "", false, fmt.Errorf("invalid auth line %d: empty user or hash", lineNum)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		return "", "", false, fmt.Errorf("invalid auth line %d: expected argon2id hash", lineNum)
	}
	return user, hash, false, nil
}

// SetUser adds user with the given hash or replaces the existing entry,
// keeping the other lines and comments as they are. The file is replaced
// atomically and created when missing. Concurrent writers are serialized
// through a lock file next to path.
func SetUser(path, user, hash string) error {
	if user == "" || strings.ContainsAny(user, ":\n") {
		return fmt.Errorf("invalid user name %q", user)
	}
	if _, err := ParseHash(hash); err != nil {
		return err
	}

	lock, err := acquireLock(path+".lock", lockTimeout)
	if err != nil {
		return fmt.Errorf("lock auth file: %w", err)
	}
	defer lock.Release()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read auth file: %w", err)
	}

	var out bytes.Buffer
	replaced := false
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	for i, line := range lines {
		if line == "" && len(data) == 0 {
			continue
		}
		name, _, skip, err := parseLine(line, i+1)
		if err == nil && !skip && name == user {
			if replaced {
				continue
			}
			line = user + ":" + hash
			replaced = true
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if !replaced {
		out.WriteString(user + ":" + hash + "\n")
	}
	if err := atomic.WriteFile(path, &out); err != nil {
		return fmt.Errorf("write auth file: %w", err)
	}
	return os.Chmod(path, 0o600)
}
