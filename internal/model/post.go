package model

// Post is the only persisted record. It is always replaced as a whole:
// an edit produces a new Post with a fresh ID.
type Post struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	UserID int64  `json:"userId"` // the author
}

// Form holds the user editable part of a Post.
type Form struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (p Post) Form() Form {
	return Form{Title: p.Title, Body: p.Body}
}
