package social

import (
	"errors"
	"strings"
)

// ErrUsernameTaken is returned when a username is already indexed for a
// different user.
var ErrUsernameTaken = errors.New("username belongs to another user")

// Directory maps usernames to user ids. Lookups are case-insensitive.
type Directory struct {
	byName map[string]int64
	byID   map[int64]string
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		byName: make(map[string]int64),
		byID:   make(map[int64]string),
	}
}

// Register records or renames a user. Empty usernames are ignored. A name
// indexed for another user is not taken over: id keeps it as display name
// only and ErrUsernameTaken is returned.
func (d *Directory) Register(id int64, username string) error {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil
	}
	key := strings.ToLower(username)
	if old, ok := d.byID[id]; ok {
		if oldKey := strings.ToLower(old); oldKey != key && d.byName[oldKey] == id {
			delete(d.byName, oldKey)
		}
	}
	d.byID[id] = username
	if owner, ok := d.byName[key]; ok && owner != id {
		return ErrUsernameTaken
	}
	d.byName[key] = id
	return nil
}

// Lookup resolves a username, with or without the leading @.
func (d *Directory) Lookup(username string) (int64, bool) {
	id, ok := d.byName[strings.ToLower(strings.TrimPrefix(username, "@"))]
	return id, ok
}

// Username returns the display name of id.
func (d *Directory) Username(id int64) (string, bool) {
	name, ok := d.byID[id]
	return name, ok
}
