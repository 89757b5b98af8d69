package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/accountd/internal/model"
	"github.com/xxxsen/accountd/internal/pkg/response"
	"github.com/xxxsen/accountd/internal/service"
)

type OtpHandler struct {
	otp *service.OtpService
}

func NewOtpHandler(otp *service.OtpService) *OtpHandler {
	return &OtpHandler{otp: otp}
}

type otpGenerateRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

type otpVerifyRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	Code    string `json:"code"`
}

func (h *OtpHandler) Generate(c *gin.Context) {
	var req otpGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, "invalid request")
		return
	}
	issue, err := h.otp.Generate(c.Request.Context(), req.Email, model.OtpPurpose(req.Purpose))
	if err != nil {
		handleError(c, err)
		return
	}
	data := gin.H{"expires_at": issue.ExpiresAt, "delivered": issue.Delivered}
	if !issue.Delivered {
		data["warning"] = "code generated but delivery failed"
	}
	response.Success(c, data)
}

func (h *OtpHandler) Verify(c *gin.Context) {
	var req otpVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, "invalid request")
		return
	}
	if err := h.otp.Verify(c.Request.Context(), req.Email, model.OtpPurpose(req.Purpose), req.Code); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"verified": true})
}
