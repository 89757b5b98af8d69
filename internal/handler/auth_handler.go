package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/accountd/internal/pkg/response"
	"github.com/xxxsen/accountd/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerRequest struct {
	UserName  string `json:"user_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	KeyHandle string `json:"key_handle"`
	Code      string `json:"code"`
}

type loginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	KeyHandle string `json:"key_handle"`
}

type resetPasswordRequest struct {
	Email     string `json:"email"`
	Code      string `json:"code"`
	Password  string `json:"password"`
	KeyHandle string `json:"key_handle"`
}

func (h *AuthHandler) TransportKey(c *gin.Context) {
	key, err := h.auth.IssueTransportKey(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, key)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, "invalid request")
		return
	}
	user, token, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		UserName:  req.UserName,
		Email:     req.Email,
		Password:  req.Password,
		KeyHandle: req.KeyHandle,
		Code:      req.Code,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"user": toUserView(user), "token": token})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, "invalid request")
		return
	}
	user, token, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		KeyHandle: req.KeyHandle,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"user": toUserView(user), "token": token})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, "invalid request")
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), service.ResetPasswordInput{
		Email:     req.Email,
		Code:      req.Code,
		Password:  req.Password,
		KeyHandle: req.KeyHandle,
	}); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
