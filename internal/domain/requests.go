package domain

// SubmitPostRequest payload for a new submission
type SubmitPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content" binding:"required"`
	Tag     string `json:"tag" binding:"required"`
}

// EditPostRequest payload for an author edit. The hash authorizes the edit
// in place of an account.
type EditPostRequest struct {
	Content string `json:"content" binding:"required"`
	Hash    string `json:"hash" binding:"required"`
}

// AcceptPostRequest payload for accepting a pending submission
type AcceptPostRequest struct {
	FbLink string `json:"fb_link"`
}

// RejectPostRequest payload for rejecting a pending submission
type RejectPostRequest struct {
	Reason string `json:"reason" binding:"required"`
}
