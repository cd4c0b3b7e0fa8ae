package types

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
}

type Server struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code"`
	OwnerID    int64  `json:"owner_id"`
}

type ServerMember struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	JoinedAt string `json:"joined_at"`
	IsOwner  bool   `json:"is_owner"`
}

type Channel struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ServerID int64  `json:"server_id"`
}
