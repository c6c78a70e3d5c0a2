// Package domain contains entities without logic, just meta-data.
package domain

type (
	RoomID string
	UserID string
)

// Room is the server-side room record as the agent sees it.
type Room struct {
	ID        RoomID `json:"id"`
	Name      string `json:"name"`
	CreatedBy string `json:"created_by"`
}

// Session is the agent's membership in one meeting. Owned exclusively
// by the orchestrator; destroyed on leave/end.
type Session struct {
	RoomID  RoomID
	Token   string
	IsHost  bool
	LocalID UserID
}
