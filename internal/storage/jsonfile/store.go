package jsonfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// warningStore mirrors the whole warnings file in memory and rewrites it on
// every mutation. The file layout is a fixed external interface: a JSON
// object of chat-id strings to objects of user-id strings to counts,
// two-space indented, non-ASCII preserved.
type warningStore struct {
	path string

	mu   sync.RWMutex
	data map[int64]map[int64]int
}

func NewWarningStore(path string) (*warningStore, error) {
	s := &warningStore{
		path: path,
		data: map[int64]map[int64]int{},
	}
	if err := s.load(); err != nil {
		return nil, errors.WithMessage(err, "cant load warnings file")
	}
	return s, nil
}

func (s *warningStore) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	flat := map[string]map[string]int{}
	if err := json.Unmarshal(raw, &flat); err != nil {
		return err
	}
	for chatKey, users := range flat {
		chatID, err := strconv.ParseInt(chatKey, 10, 64)
		if err != nil {
			return errors.WithMessagef(err, "bad chat key %q", chatKey)
		}
		counts := make(map[int64]int, len(users))
		for userKey, count := range users {
			userID, err := strconv.ParseInt(userKey, 10, 64)
			if err != nil {
				return errors.WithMessagef(err, "bad user key %q", userKey)
			}
			counts[userID] = count
		}
		s.data[chatID] = counts
	}
	return nil
}

// persist expects the caller to hold the write lock. The rewrite goes
// through a temp file and rename, so a crash mid-write cannot leave a
// truncated store behind.
func (s *warningStore) persist() error {
	flat := make(map[string]map[string]int, len(s.data))
	for chatID, users := range s.data {
		counts := make(map[string]int, len(users))
		for userID, count := range users {
			counts[strconv.FormatInt(userID, 10)] = count
		}
		flat[strconv.FormatInt(chatID, 10)] = counts
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".warnings-*.json")
	if err != nil {
		return errors.WithMessage(err, "cant create temp file")
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(flat); err != nil {
		_ = tmp.Close()
		return errors.WithMessage(err, "cant encode warnings")
	}
	if err := tmp.Close(); err != nil {
		return errors.WithMessage(err, "cant close temp file")
	}
	return errors.WithMessage(os.Rename(tmp.Name(), s.path), "cant replace warnings file")
}

func (s *warningStore) Increment(chatID int64, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.data[chatID]
	if users == nil {
		users = map[int64]int{}
		s.data[chatID] = users
	}
	users[userID]++
	if err := s.persist(); err != nil {
		return 0, err
	}
	return users[userID], nil
}

func (s *warningStore) Reset(chatID int64, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, ok := s.data[chatID]
	if !ok {
		return nil
	}
	if _, ok := users[userID]; !ok {
		return nil
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(s.data, chatID)
	}
	return s.persist()
}

func (s *warningStore) Get(chatID int64, userID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data[chatID][userID]
}

func (s *warningStore) GetAll(chatID int64) map[int64]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[int64]int, len(s.data[chatID]))
	for userID, count := range s.data[chatID] {
		counts[userID] = count
	}
	return counts
}
