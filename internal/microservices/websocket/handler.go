package websocket

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// HTTP upgrade handler for realtime connections. The bearer token is
// verified before the upgrade: an anonymous socket never reaches the
// registry.

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// allow all origins for development purpose; can restrict later
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler authenticates the handshake and upgrades the connection.
// The token comes from the "token" query parameter or the Authorization
// header; the subject claim is the user id.
func WSHandler(registry *Registry, jwtSecret string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := handshakeToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		userID, err := verifyToken(token, jwtSecret)
		if err != nil {
			logger.Warn("websocket auth failed", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the error response
			logger.Error("websocket upgrade failed", "error", err)
			return
		}

		client := NewClient(uuid.NewString(), userID, conn, registry, logger)
		if old := registry.Add(client); old != nil {
			old.Close()
		}

		go client.WritePump()
		go client.ReadPump()

		// handshake ack so the web client knows it is registered
		if frame, err := NewPushMessage(EventConnected, gin.H{"message": "Connected to notifications server"}).ToJSON(); err == nil {
			client.Send(frame)
		}
	}
}

func handshakeToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	// accept both raw tokens and the "Bearer <token>" form
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return header
}

// verifyToken checks the HMAC signature against the shared secret and
// extracts the subject claim.
func verifyToken(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("sub claim is missing")
	}
	return sub, nil
}
