package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/broker"
	"taskhub/internal/microservices/gateway/facade"
)

// stubSender answers every command with a fixed reply or error
type stubSender struct {
	reply   json.RawMessage
	err     error
	pattern string
}

func (s *stubSender) Send(ctx context.Context, queue, pattern string, payload any, out any) error {
	s.pattern = pattern
	if s.err != nil {
		return s.err
	}
	*(out.(*json.RawMessage)) = s.reply
	return nil
}

func setupAuthRouter(sender facade.CommandSender) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewAuthHandler(facade.NewAuthClient(sender, "auth_queue"))
	router.POST("/api/auth/register", h.Register)
	router.POST("/api/auth/login", h.Login)
	return router
}

func TestRegisterHandler_PassesReplyThrough(t *testing.T) {
	sender := &stubSender{reply: json.RawMessage(`{"user":{"id":"u1","email":"a@example.com","username":"alice"},"accessToken":"a","refreshToken":"r"}`)}
	router := setupAuthRouter(sender)

	body, _ := json.Marshal(gin.H{
		"email":    "a@example.com",
		"username": "alice",
		"password": "password123",
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, string(sender.reply), w.Body.String())
	assert.Equal(t, "register", sender.pattern)
}

func TestRegisterHandler_RejectsInvalidBody(t *testing.T) {
	sender := &stubSender{}
	router := setupAuthRouter(sender)

	body, _ := json.Marshal(gin.H{"email": "not-an-email", "username": "al", "password": "short"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	// the command channel was never touched
	assert.Empty(t, sender.pattern)
}

func TestLoginHandler_RemoteErrorKeepsStatusAndBody(t *testing.T) {
	sender := &stubSender{err: broker.NewUnauthorized("Invalid credentials")}
	router := setupAuthRouter(sender)

	body, _ := json.Marshal(gin.H{"email": "a@example.com", "password": "wrong-password"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp facade.HTTPError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", resp.Message)
	assert.Equal(t, "Unauthorized", resp.Kind)
}

func TestLoginHandler_TimeoutBecomes504(t *testing.T) {
	sender := &stubSender{err: broker.ErrTimeout}
	router := setupAuthRouter(sender)

	body, _ := json.Marshal(gin.H{"email": "a@example.com", "password": "password123"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}
