package users

// CreateUserRequest is the registration payload.
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the credential pair checked by Authenticate.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
