package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pomelo/internal/model"
	"pomelo/internal/pkg/apperr"
	"pomelo/internal/pkg/ctxutil"
)

// renderError 业务错误统一渲染：级别决定状态码
func renderError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	c.JSON(appErr.HTTPStatus(), model.ErrorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}

// renderResult 成功响应统一包在 result 信封下
func renderResult(c *gin.Context, result any) {
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// currentUserID 从认证中间件注入的 context 取 userID
func currentUserID(c *gin.Context) (string, bool) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{
			Code:    40101,
			Message: "未授权",
		})
		return "", false
	}
	return userID, true
}
