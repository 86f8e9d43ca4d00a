package edit

import "github.com/SergeyParamoshkin/posts/internal/model"

// Merge drops every post whose ID is originalID and puts updated in front
// of what is left. posts is not modified.
func Merge(posts []model.Post, originalID string, updated model.Post) []model.Post {
	out := make([]model.Post, 0, len(posts)+1)
	out = append(out, updated)

	for _, p := range posts {
		if originalID != "" && p.ID == originalID {
			continue
		}
		out = append(out, p)
	}

	return out
}
