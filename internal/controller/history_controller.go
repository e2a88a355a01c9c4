package controller

import (
	"quiz_bot_backend/internal/service"
	"quiz_bot_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type HistoryController struct {
	HistoryService *service.HistoryService
}

func NewHistoryController(historyService *service.HistoryService) *HistoryController {
	return &HistoryController{HistoryService: historyService}
}

// List godoc
// @Summary 测验历史
// @Description 按结束时间倒序列出当前用户的全部测验，未结束的排在最后
// @Tags 历史
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.AttemptView} "测验历史"
// @Failure 401 {object} util.Response "未授权"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/history [get]
func (c *HistoryController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	views, err := c.HistoryService.ListAttempts(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, views)
}
