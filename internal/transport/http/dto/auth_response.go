package dto

import "github.com/baechuer/tokenauth/internal/domain"

type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func NewUserResponse(v domain.AccountView) UserResponse {
	return UserResponse{ID: v.ID, Email: v.Email}
}

// RegisterResponse carries the token in the body as well as in the x-auth header.
type RegisterResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

type LoginResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}
