package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Llaves del contexto de gin
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// Claims del token: sub es el id del operador
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth valida tokens HS256 firmados con el secreto compartido
type Auth struct {
	secret []byte
	logger *zap.Logger
}

func NewAuth(secret string, logger *zap.Logger) *Auth {
	return &Auth{secret: []byte(secret), logger: logger}
}

// IssueToken firma un token para userID con el rol dado
func (a *Auth) IssueToken(userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Auth) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// RequireAuth exige un Bearer token válido y deja user_id y role en el contexto
func (a *Auth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			abortUnauthorized(c, "Token de autorización requerido")
			return
		}

		claims, err := a.parse(tokenString)
		if err != nil {
			a.logger.Warn("Token rechazado",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			abortUnauthorized(c, "Token inválido o expirado")
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireRole corta con 403 si el rol del token no está en roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "❌ Permisos insuficientes",
			"error":   "role " + role + " is not allowed",
		})
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": "❌ " + message,
		"error":   "unauthorized",
	})
}
