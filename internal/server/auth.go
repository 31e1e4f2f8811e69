package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ButyrinIA/yatube/internal/api"
	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"

	minPasswordLength = 8
	maxUsernameLength = 150
)

var (
	errInvalidToken = errors.New("token is invalid or expired")
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
)

type claims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет JWT с подписью HS256
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (m *TokenManager) generateToken(userID, tokenType string) (string, error) {
	ttl := m.accessTTL
	if tokenType == tokenRefresh {
		ttl = m.refreshTTL
	}
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(m.secret)
}

// validateJWT возвращает user_id токена. Пустой tokenType принимает любой тип.
func (m *TokenManager) validateJWT(tokenString, tokenType string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("пустой токен: %w", errInvalidToken)
	}
	var c claims
	_, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if c.UserID == "" {
		return "", fmt.Errorf("нет user_id: %w", errInvalidToken)
	}
	if tokenType != "" && c.TokenType != tokenType {
		return "", fmt.Errorf("ожидался токен %s: %w", tokenType, errInvalidToken)
	}
	return c.UserID, nil
}

type tokenError struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

func writeTokenError(w http.ResponseWriter) {
	api.WriteJSON(w, http.StatusUnauthorized, tokenError{
		Detail: "Token is invalid or expired",
		Code:   "token_not_valid",
	})
}

// authenticate проверяет заголовок Authorization и кладет user_id в контекст.
// Запрос без заголовка считается анонимным.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || scheme != "Bearer" {
			writeTokenError(w)
			return
		}
		userID, err := s.tokens.validateJWT(token, tokenAccess)
		if err != nil {
			writeTokenError(w)
			return
		}
		if _, err := s.storage.GetUser(r.Context(), userID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				api.WriteJSON(w, http.StatusUnauthorized, tokenError{Detail: "User not found", Code: "user_not_found"})
				return
			}
			api.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(api.WithRequester(r.Context(), userID)))
	})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c credentials) validate() error {
	errs := api.FieldErrors{}
	switch {
	case c.Username == "":
		errs["username"] = []string{"This field is required."}
	case len(c.Username) > maxUsernameLength:
		errs["username"] = []string{fmt.Sprintf("Ensure this field has no more than %d characters.", maxUsernameLength)}
	case !usernamePattern.MatchString(c.Username):
		errs["username"] = []string{"Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."}
	}
	if len(c.Password) < minPasswordLength {
		errs["password"] = []string{fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength)}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := api.DecodeJSON(r, &c); err != nil {
		api.WriteError(w, err)
		return
	}
	if err := c.validate(); err != nil {
		api.WriteError(w, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		api.WriteError(w, fmt.Errorf("hash password: %w", err))
		return
	}
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     c.Username,
		PasswordHash: string(hash),
	}
	if err := s.storage.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			api.WriteError(w, api.FieldErrors{"username": {"A user with that username already exists."}})
			return
		}
		api.WriteError(w, fmt.Errorf("failed to create user: %w", err))
		return
	}
	log.Printf("Зарегистрирован пользователь %s", user.Username)
	api.WriteJSON(w, http.StatusCreated, map[string]string{"id": user.ID, "username": user.Username})
}

func (s *Server) createToken(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := api.DecodeJSON(r, &c); err != nil {
		api.WriteError(w, err)
		return
	}

	user, err := s.storage.GetUserByUsername(r.Context(), c.Username)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		api.WriteError(w, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.Password)) != nil {
		api.WriteJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "No active account found with the given credentials",
		})
		return
	}

	access, err := s.tokens.generateToken(user.ID, tokenAccess)
	if err != nil {
		api.WriteError(w, fmt.Errorf("ошибка генерации токена: %w", err))
		return
	}
	refresh, err := s.tokens.generateToken(user.ID, tokenRefresh)
	if err != nil {
		api.WriteError(w, fmt.Errorf("ошибка генерации токена: %w", err))
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := api.DecodeJSON(r, &body); err != nil {
		api.WriteError(w, err)
		return
	}
	userID, err := s.tokens.validateJWT(body.Refresh, tokenRefresh)
	if err != nil {
		writeTokenError(w)
		return
	}
	access, err := s.tokens.generateToken(userID, tokenAccess)
	if err != nil {
		api.WriteError(w, fmt.Errorf("ошибка генерации токена: %w", err))
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (s *Server) verifyToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := api.DecodeJSON(r, &body); err != nil {
		api.WriteError(w, err)
		return
	}
	if _, err := s.tokens.validateJWT(body.Token, ""); err != nil {
		writeTokenError(w)
		return
	}
	api.WriteJSON(w, http.StatusOK, struct{}{})
}
