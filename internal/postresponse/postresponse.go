package postresponse

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/posts/internal/model"
	"github.com/SergeyParamoshkin/posts/internal/notify"
	"github.com/SergeyParamoshkin/posts/internal/user"
	"github.com/SergeyParamoshkin/posts/internal/userpayload"
)

// PostResponse is the response payload for the Post data model.
//
// render calls Render on PostResponse first and then on the nested User
// payload, top-down like a middleware chain.
type PostResponse struct {
	*model.Post

	User *userpayload.UserPayload `json:"user,omitempty"`
}

func NewPostResponse(post *model.Post, users *user.Directory) *PostResponse {
	resp := &PostResponse{Post: post}

	if users != nil {
		if u, err := users.Get(post.UserID); err == nil {
			resp.User = userpayload.NewUserPayloadResponse(u)
		}
	}

	return resp
}

func (rd *PostResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func NewPostListResponse(posts []model.Post, users *user.Directory) []render.Renderer {
	list := []render.Renderer{}
	for i := range posts {
		list = append(list, NewPostResponse(&posts[i], users))
	}

	return list
}

// FormResponse holds the initial values of the edit form.
type FormResponse struct {
	PostID string `json:"postId"`
	model.Form
	// Found is false when the post could not be loaded and the form
	// starts empty.
	Found bool `json:"found"`
}

func (f *FormResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// SubmitResponse acknowledges a saved post.
type SubmitResponse struct {
	Post     *PostResponse  `json:"post"`
	Toasts   []notify.Toast `json:"toasts"`
	Redirect string         `json:"redirect"`
}

func (s *SubmitResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if s.Redirect != "" {
		w.Header().Set("Location", s.Redirect)
	}

	return nil
}
