package postrequest

import (
	"net/http"

	"github.com/SergeyParamoshkin/posts/internal/model"
)

// PostRequest is the request payload of the create and edit forms.
//
// Only title and body are accepted from the client; id and author are
// always assigned by the server.
type PostRequest struct {
	model.Form

	ProtectedID     string `json:"id"`
	ProtectedUserID int64  `json:"userId"`
}

func (p *PostRequest) Bind(r *http.Request) error {
	p.ProtectedID = ""
	p.ProtectedUserID = 0

	return nil
}
