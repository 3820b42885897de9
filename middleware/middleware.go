package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"recipebox/recipes"
)

const (
	TokenCookie = "token"
	actorKey    = "actor"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 login tokens.
type Tokens struct {
	key []byte
	ttl time.Duration
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{key: []byte(secret), ttl: ttl}
}

func (t *Tokens) TTL() time.Duration {
	return t.ttl
}

func (t *Tokens) Issue(userID uint, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
}

func (t *Tokens) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return t.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}

// Actor resolves the request's actor from the Authorization header or the token cookie.
// Missing or invalid tokens leave the request anonymous.
func Actor(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFrom(c)
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			c.Next()
			return
		}

		c.Set(actorKey, recipes.Actor{ID: claims.UserID, Username: claims.Username})
		c.Next()
	}
}

// AuthMiddleware rejects anonymous requests. It must run after Actor.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentActor(c).Authenticated() {
			c.JSON(401, gin.H{"error": "not logged in"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func CurrentActor(c *gin.Context) recipes.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(recipes.Actor); ok {
			return a
		}
	}
	return recipes.Anonymous
}
