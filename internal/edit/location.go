package edit

import "github.com/SergeyParamoshkin/posts/internal/model"

// Option is a post that may be absent. The zero value is None.
type Option struct {
	post model.Post
	ok   bool
}

func Some(p model.Post) Option {
	return Option{post: p, ok: true}
}

func None() Option {
	return Option{}
}

func (o Option) Get() (model.Post, bool) {
	return o.post, o.ok
}

// Location is what navigation hands to the workflow: the id from the
// route and, when the user came from a listing, the post they picked.
// An empty PostID means a new post is being created.
type Location struct {
	PostID   string
	Previous Option
}

// Navigator moves the user between views.
type Navigator interface {
	Redirect(path string)
	Back()
}
