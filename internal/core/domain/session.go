package domain

const (
	TokenStorageKey       = "auth_token"
	LegacyTokenStorageKey = "authToken"
	UserStorageKey        = "auth_user"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

type UserProfile struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
	LastLogin Timestamp `json:"lastLogin"`
}

func (u UserProfile) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// ProfileUpdate is a partial profile; empty fields are left untouched by Merge.
type ProfileUpdate struct {
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

func (u UserProfile) Merge(patch ProfileUpdate) UserProfile {
	if patch.Username != "" {
		u.Username = patch.Username
	}
	if patch.Email != "" {
		u.Email = patch.Email
	}
	if patch.FirstName != "" {
		u.FirstName = patch.FirstName
	}
	if patch.LastName != "" {
		u.LastName = patch.LastName
	}
	return u
}

type Session struct {
	User      *UserProfile `json:"user,omitempty"`
	Token     string       `json:"-"`
	IsLoading bool         `json:"isLoading"`
	Error     string       `json:"error,omitempty"`
}

// IsAuthenticated is derived so it can never disagree with User and Token.
func (s Session) IsAuthenticated() bool {
	return s.User != nil && s.Token != ""
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type AuthResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	TokenType    string       `json:"tokenType,omitempty"`
	ExpiresIn    int64        `json:"expiresIn,omitempty"`
	User         *UserProfile `json:"user,omitempty"`
}
