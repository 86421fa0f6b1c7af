package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskhub/internal/microservices/gateway/dto"
	"taskhub/internal/microservices/gateway/facade"
)

type AuthHandler struct {
	auth *facade.AuthClient
}

func NewAuthHandler(auth *facade.AuthClient) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		writeFacadeError(c, err)
		return
	}
	writeRaw(c, http.StatusCreated, reply)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		writeFacadeError(c, err)
		return
	}
	writeRaw(c, http.StatusOK, reply)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := h.auth.Refresh(c.Request.Context(), req)
	if err != nil {
		writeFacadeError(c, err)
		return
	}
	writeRaw(c, http.StatusOK, reply)
}

func (h *AuthHandler) ListUsers(c *gin.Context) {
	reply, err := h.auth.FindAllUsers(c.Request.Context())
	if err != nil {
		writeFacadeError(c, err)
		return
	}
	writeRaw(c, http.StatusOK, reply)
}

// writeRaw forwards a service reply byte for byte
func writeRaw(c *gin.Context, status int, body json.RawMessage) {
	c.Data(status, "application/json", body)
}

func writeFacadeError(c *gin.Context, err error) {
	httpErr := facade.MapError(err)
	c.JSON(httpErr.StatusCode, httpErr)
}
