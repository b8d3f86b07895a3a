package api

import (
	"encoding/json"
	"errors"
	"os"
	"path"
)

// SnapshotCache keeps the last user fetched from the server so the UI has
// something to show before the network answers.
type SnapshotCache struct {
	Path string
}

func NewSnapshotCache() (*SnapshotCache, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}
	return &SnapshotCache{Path: path.Join(dir, "questlog", "user.json")}, nil
}

// Load returns nil without error if nothing has been cached yet.
func (c *SnapshotCache) Load() (*User, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var user User
	if err := json.NewDecoder(f).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *SnapshotCache) Save(user *User) error {
	if err := os.MkdirAll(path.Dir(c.Path), 0o700); err != nil {
		return err
	}
	f, err := os.CreateTemp(path.Dir(c.Path), "user-*.json")
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(user); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), c.Path)
}
