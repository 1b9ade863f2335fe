package models

// Client is a newsletter recipient owned by a user.
type Client struct {
	ID       int64  `json:"id"`
	OwnerID  int64  `json:"owner_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Comment  string `json:"comment,omitempty"`
}

type Message struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"owner_id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Viewer is the identity the surrounding auth layer attaches to a request.
type Viewer struct {
	UserID  int64
	IsStaff bool
}
