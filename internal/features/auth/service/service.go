package service

import (
	"sync"

	"printerbot-backend/internal/common/logger"
)

// AuthResult is the outcome of an authorization attempt.
type AuthResult int

const (
	Authorized AuthResult = iota
	AlreadyAuthorized
	WrongSecret
)

// AuthService guards every bot operation behind the shared print password.
// Granted identities are kept for the process lifetime only; there is no
// lockout or backoff on wrong attempts, rate limiting is an external
// concern.
type AuthService interface {
	IsAuthorized(userID int64) bool
	Authorize(userID int64, suppliedSecret string) AuthResult
	Reset(userID int64)
}

type authService struct {
	secret string

	mu         sync.RWMutex
	authorized map[int64]struct{}
}

func NewAuthService(secret string) AuthService {
	return &authService{
		secret:     secret,
		authorized: make(map[int64]struct{}),
	}
}

func (s *authService) IsAuthorized(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.authorized[userID]
	return ok
}

func (s *authService) Authorize(userID int64, suppliedSecret string) AuthResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.authorized[userID]; ok {
		logger.Info().Int64("user_id", userID).Msg("User tried to authorize multiple times")
		return AlreadyAuthorized
	}

	if suppliedSecret != s.secret {
		logger.Warn().Int64("user_id", userID).Msg("User entered wrong password")
		return WrongSecret
	}

	s.authorized[userID] = struct{}{}
	logger.Info().Int64("user_id", userID).Msg("User authorized")
	return Authorized
}

// Reset revokes a previously granted authorization. Nothing in the bot
// calls this on its own, it exists for out-of-band administration.
func (s *authService) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.authorized, userID)
}
