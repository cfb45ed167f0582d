package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"livey-backend/internal/errs"
	"livey-backend/internal/models"
)

const UserIDKey = "user_id"

// TokenVerifier resolves a bearer token to the seller it was issued to.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (uuid.UUID, error)
}

// JWTVerifier checks Supabase access tokens locally with the project's HS256 secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) VerifyToken(_ context.Context, tokenString string) (uuid.UUID, error) {
	if len(v.secret) == 0 {
		return uuid.Nil, errs.ErrNotConfigured
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Supabase JWT secret is used directly as the signing key
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, fmt.Errorf("%w: missing user id in token", errs.ErrUnauthorized)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: user id is not a uuid", errs.ErrUnauthorized)
	}
	return id, nil
}

// AuthMiddleware requires a bearer token and stores the seller id under UserIDKey.
func AuthMiddleware(verifier TokenVerifier, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}
		tokenString = strings.TrimSpace(tokenString)
		if tokenString == "" {
			abortUnauthorized(c, "empty token")
			return
		}

		sellerID, err := verifier.VerifyToken(c.Request.Context(), tokenString)
		if err != nil {
			if !errors.Is(err, errs.ErrUnauthorized) {
				log.Error("token verification failed", zap.Error(err))
			}
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(UserIDKey, sellerID)
		c.Next()
	}
}

// SellerID returns the authenticated seller set by AuthMiddleware.
func SellerID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized", Message: msg})
}
