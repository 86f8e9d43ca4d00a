package user

import (
	"errors"
	"sync"
)

var ErrNotFound = errors.New("user not found")

type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Directory resolves author ids to display names.
type Directory struct {
	mu    sync.RWMutex
	users map[int64]*User
}

func NewDirectory(users ...*User) *Directory {
	d := &Directory{users: map[int64]*User{}}
	for _, u := range users {
		d.Add(u)
	}

	return d
}

func (d *Directory) Add(u *User) {
	d.mu.Lock()
	d.users[u.ID] = u
	d.mu.Unlock()
}

func (d *Directory) Get(id int64) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if u, ok := d.users[id]; ok {
		return u, nil
	}

	return nil, ErrNotFound
}
