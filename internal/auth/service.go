package auth

import (
	"context"
	"errors"
	"fmt"
)

// Service combines account persistence, password hashing and token
// issuance into the signup and login flows the API exposes.
type Service struct {
	operators  OperatorRepository
	secret     string
	ttlMinutes int
}

// NewService creates an auth service.
//
// Parameters:
//   - operators: Operator account repository
//   - secret: HMAC secret for signing access tokens
//   - ttlMinutes: Access token lifetime in minutes
func NewService(operators OperatorRepository, secret string, ttlMinutes int) *Service {
	return &Service{
		operators:  operators,
		secret:     secret,
		ttlMinutes: ttlMinutes,
	}
}

// Signup registers a new operator account and returns it with a fresh
// access token, so a new operator is signed in immediately.
//
// Returns ErrInvalidUsername, ErrWeakPassword or ErrUsernameExists on
// rejected input.
func (s *Service) Signup(ctx context.Context, username, password, displayName string) (*Operator, string, error) {
	if !IsValidUsername(username) {
		return nil, "", ErrInvalidUsername
	}
	if !IsValidPassword(password) {
		return nil, "", ErrWeakPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	op := &Operator{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
	}
	if err := s.operators.Create(ctx, op); err != nil {
		return nil, "", err
	}

	token, err := GenerateAccessToken(op, s.secret, s.ttlMinutes)
	if err != nil {
		return nil, "", err
	}
	return op, token, nil
}

// Login authenticates an operator by username and password and returns the
// account with a fresh access token.
//
// Returns ErrInvalidCredentials for both unknown usernames and wrong
// passwords; callers cannot distinguish the two.
func (s *Service) Login(ctx context.Context, username, password string) (*Operator, string, error) {
	op, err := s.operators.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrOperatorNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	ok, err := VerifyPassword(password, op.PasswordHash)
	if err != nil {
		return nil, "", fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return nil, "", ErrInvalidCredentials
	}

	token, err := GenerateAccessToken(op, s.secret, s.ttlMinutes)
	if err != nil {
		return nil, "", err
	}
	return op, token, nil
}

// Validate parses an access token and confirms it identifies an operator.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	return ParseToken(tokenString, s.secret)
}
