package userpayload

import (
	"net/http"

	"github.com/SergeyParamoshkin/posts/internal/user"
)

// UserPayload is the author block attached to post responses.
type UserPayload struct {
	*user.User
	Role string `json:"role"`
}

func NewUserPayloadResponse(u *user.User) *UserPayload {
	return &UserPayload{User: u}
}

func (u *UserPayload) Render(w http.ResponseWriter, r *http.Request) error {
	u.Role = "author"

	return nil
}
