package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/accountd/internal/model"
	"github.com/xxxsen/accountd/internal/pkg/response"
	"github.com/xxxsen/accountd/internal/service"
)

type AccountHandler struct {
	auth     *service.AuthService
	accounts *service.AccountService
}

func NewAccountHandler(auth *service.AuthService, accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{auth: auth, accounts: accounts}
}

type accountRequest struct {
	Email string `json:"email"`
}

func (h *AccountHandler) Me(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, toUserView(user))
}

func (h *AccountHandler) DeleteSelf(c *gin.Context) {
	user, err := h.auth.DeleteSelf(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, toUserView(user))
}

func (h *AccountHandler) Get(c *gin.Context) {
	user, err := h.accounts.Get(c.Request.Context(), c.Query("email"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, toUserView(user))
}

func (h *AccountHandler) SoftDelete(c *gin.Context) {
	h.transition(c, h.accounts.SoftDelete)
}

func (h *AccountHandler) Restore(c *gin.Context) {
	h.transition(c, h.accounts.Restore)
}

func (h *AccountHandler) Disable(c *gin.Context) {
	h.transition(c, h.accounts.Disable)
}

func (h *AccountHandler) Enable(c *gin.Context) {
	h.transition(c, h.accounts.Enable)
}

func (h *AccountHandler) HardDelete(c *gin.Context) {
	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, "invalid request")
		return
	}
	if err := h.accounts.HardDelete(c.Request.Context(), req.Email); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *AccountHandler) transition(c *gin.Context, fn func(ctx context.Context, email string) (*model.User, error)) {
	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, "invalid request")
		return
	}
	user, err := fn(c.Request.Context(), req.Email)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, toUserView(user))
}
