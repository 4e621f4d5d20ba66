package models

type Role string

const (
	RoleCitizen Role = "citizen"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCitizen || r == RoleAdmin
}

// User is the authenticated principal. Points, Level and Badges are only
// populated for citizens.
type User struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Role   Role     `json:"role"`
	Phone  string   `json:"phone,omitempty"`
	Avatar string   `json:"avatar,omitempty"`
	Points int      `json:"points,omitempty"`
	Level  int      `json:"level,omitempty"`
	Badges []string `json:"badges,omitempty"`
}

// Session is the body of /auth/login and /auth/signup responses.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
