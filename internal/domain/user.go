package domain

import "time"

// User is an account record. The verification and reset secrets are single-use:
// they are removed from the item once consumed so the sparse GSIs on them stop matching.
type User struct {
	UserID              string    `json:"id" dynamodbav:"user_id"`
	Email               string    `json:"email" dynamodbav:"email"`
	PasswordHash        string    `json:"-" dynamodbav:"password_hash"`
	Verified            bool      `json:"verified" dynamodbav:"verified"`
	VerificationToken   string    `json:"-" dynamodbav:"verification_token,omitempty"`
	VerificationExpires int64     `json:"-" dynamodbav:"verification_expires,omitempty"` // Unix seconds
	ResetToken          string    `json:"-" dynamodbav:"reset_token,omitempty"`
	ResetExpires        int64     `json:"-" dynamodbav:"reset_expires,omitempty"` // Unix seconds
	CreatedAt           time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt           time.Time `json:"updated" dynamodbav:"updated_at"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}
