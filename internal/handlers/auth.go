package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"github.com/tripplan/tripplan-api/internal/apperr"
	"github.com/tripplan/tripplan-api/internal/authz"
	"github.com/tripplan/tripplan-api/internal/models"
	"github.com/tripplan/tripplan-api/internal/repository"
)

const tokenTTL = 24 * time.Hour

type AuthHandler struct {
	userRepository repository.UserRepository
	jwtSecret      string
	logger         zerolog.Logger
}

type signupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func NewAuthHandler(users repository.UserRepository, jwtSecret string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		userRepository: users,
		jwtSecret:      jwtSecret,
		logger:         logger.With().Str("handler", "auth").Logger(),
	}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.userRepository.CreateUser(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			err = apperr.Conflict("username or email already taken")
		}
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info().Int64("user_id", user.ID).Msg("user signed up")
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.userRepository.AuthenticateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	tokenString, err := h.issueToken(user, time.Now())
	if err != nil {
		writeError(w, r, h.logger, apperr.Internal(err, "failed to generate token"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": tokenString})
}

// Me returns the stored profile of the token's user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.UserFromRequest(r)
	user, err := h.userRepository.GetUserByID(r.Context(), identity.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) issueToken(user models.User, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      strconv.FormatInt(user.ID, 10),
		"username": user.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(tokenTTL).Unix(),
	})
	return token.SignedString([]byte(h.jwtSecret))
}

func (h *AuthHandler) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, r, h.logger, apperr.Unauthorized("authorization header required"))
			return
		}
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, r, h.logger, apperr.Unauthorized("invalid authorization format"))
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(w, r, h.logger, apperr.Unauthorized("invalid token"))
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !claims.VerifyExpiresAt(time.Now().Unix(), true) {
			writeError(w, r, h.logger, apperr.Unauthorized("token expired"))
			return
		}

		sub, _ := claims["sub"].(string)
		userID, err := strconv.ParseInt(sub, 10, 64)
		if err != nil || userID <= 0 {
			writeError(w, r, h.logger, apperr.Unauthorized("missing token subject"))
			return
		}
		username, _ := claims["username"].(string)

		ctx := authz.WithIdentity(r.Context(), userID, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
