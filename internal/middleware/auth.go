package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"healthtracker/internal/auth"
)

const userIDKey = "user_id"

var ErrUnauthorized = errors.New("invalid or expired token")

// Authorizer turns an access token into the id of the user it was issued for.
type Authorizer interface {
	Authorize(accessToken string) (uuid.UUID, error)
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
}

// Authorize checks an Authorization header value. The error is
// auth.ErrMissingBearer or ErrUnauthorized.
func Authorize(a Authorizer, header string) (Principal, error) {
	token, err := auth.BearerToken(header)
	if err != nil {
		return Principal{}, err
	}
	id, err := a.Authorize(token)
	if err != nil {
		return Principal{}, ErrUnauthorized
	}
	return Principal{UserID: id}, nil
}

// AuthMiddleware rejects requests without a valid access token and stores the
// caller's id in the gin context.
func AuthMiddleware(a Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		p, err := Authorize(a, c.GetHeader("Authorization"))
		if err != nil {
			msg := "Invalid or expired token"
			if errors.Is(err, auth.ErrMissingBearer) {
				msg = "Missing or invalid Authorization header"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}
		c.Set(userIDKey, p.UserID)
		c.Next()
	}
}

// UserID returns the id stored by AuthMiddleware.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
