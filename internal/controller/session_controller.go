package controller

import (
	"errors"

	"quiz_bot_backend/internal/service"
	"quiz_bot_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SessionController struct {
	SessionService *service.SessionService
	PushHub        *service.PushHub
}

func NewSessionController(sessionService *service.SessionService, pushHub *service.PushHub) *SessionController {
	return &SessionController{
		SessionService: sessionService,
		PushHub:        pushHub,
	}
}

// CountRequest 用户选择的本次测验题目数量
type CountRequest struct {
	Count int `json:"count" binding:"required"`
}

// SelectionRequest 选项题作答，pollToken 必须是当前题下发的标识
type SelectionRequest struct {
	PollToken string `json:"pollToken" binding:"required"`
	OptionIDs []uint `json:"optionIds"`
}

// TextRequest 文本题作答
type TextRequest struct {
	Text string `json:"text" binding:"required"`
}

// Start godoc
// @Summary 开始新测验
// @Description 开启测验会话，返回可选题目数量范围。已有会话会被新会话覆盖。
// @Tags 测验会话
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.SessionEvent} "会话已创建"
// @Failure 400 {object} util.Response "题库为空"
// @Failure 401 {object} util.Response "未授权"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/session/start [post]
func (c *SessionController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	ev, err := c.SessionService.Start(claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrEmptyCatalog) {
			util.BadRequest(ctx, "题库为空，无法开始测验")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, ev)
}

// SupplyCount godoc
// @Summary 设定题目数量
// @Description 回应数量询问，抽题并下发第一道题
// @Tags 测验会话
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body CountRequest true "题目数量"
// @Success 200 {object} util.Response{data=service.SessionEvent} "第一道题"
// @Failure 400 {object} util.Response "数量超出范围或会话状态不符"
// @Failure 401 {object} util.Response "未授权"
// @Failure 404 {object} util.Response "题目不存在"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/session/count [post]
func (c *SessionController) SupplyCount(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CountRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	ev, err := c.SessionService.SupplyCount(claims.UserID, req.Count)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrNoActiveSession):
			util.BadRequest(ctx, "当前没有等待数量的会话，请先开始测验")
		case errors.Is(err, util.ErrInvalidQuestionCount):
			util.BadRequest(ctx, "题目数量超出可选范围")
		case errors.Is(err, util.ErrEmptyCatalog):
			util.BadRequest(ctx, "题库为空，无法开始测验")
		case errors.Is(err, util.ErrQuestionNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, ev)
}

// SubmitSelection godoc
// @Summary 提交选项作答
// @Description 判题并下发下一道题。过期 poll 标识会被静默忽略。
// @Tags 测验会话
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body SelectionRequest true "所选选项"
// @Success 200 {object} util.Response{data=service.SessionEvent} "判题结果与后续内容"
// @Failure 400 {object} util.Response "会话状态不符"
// @Failure 401 {object} util.Response "未授权"
// @Failure 404 {object} util.Response "题目或测验记录不存在"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/session/answer/selection [post]
func (c *SessionController) SubmitSelection(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SelectionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	ev, err := c.SessionService.SubmitSelection(claims.UserID, req.PollToken, req.OptionIDs)
	if err != nil {
		c.answerError(ctx, err)
		return
	}

	util.Success(ctx, ev)
}

// SubmitText godoc
// @Summary 提交文本作答
// @Description 判题并下发下一道题
// @Tags 测验会话
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body TextRequest true "文本答案"
// @Success 200 {object} util.Response{data=service.SessionEvent} "判题结果与后续内容"
// @Failure 400 {object} util.Response "会话状态不符或当前题不接受文本"
// @Failure 401 {object} util.Response "未授权"
// @Failure 404 {object} util.Response "题目或测验记录不存在"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/session/answer/text [post]
func (c *SessionController) SubmitText(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req TextRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	ev, err := c.SessionService.SubmitText(claims.UserID, req.Text)
	if err != nil {
		c.answerError(ctx, err)
		return
	}

	util.Success(ctx, ev)
}

// Finish godoc
// @Summary 提前结束测验
// @Description 结算当前会话，未答题目不计入分母
// @Tags 测验会话
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.SessionEvent} "测验汇总"
// @Failure 401 {object} util.Response "未授权"
// @Failure 404 {object} util.Response "测验记录不存在"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/session/finish [post]
func (c *SessionController) Finish(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	ev, err := c.SessionService.Finish(claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrNoActiveSession):
			util.BadRequest(ctx, "当前没有进行中的测验")
		case errors.Is(err, util.ErrAttemptNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, ev)
}

// ServeWS godoc
// @Summary 建立推送连接
// @Description 升级为 WebSocket，接收会话事件的实时镜像
// @Tags 测验会话
// @Security BearerAuth
// @Success 101 "协议切换"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/session/ws [get]
func (c *SessionController) ServeWS(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	c.PushHub.ServeWS(ctx.Writer, ctx.Request, claims.UserID)
}

func (c *SessionController) answerError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrNoActiveSession):
		util.BadRequest(ctx, "当前没有等待作答的会话")
	case errors.Is(err, util.ErrChoiceAnswerExpected):
		util.BadRequest(ctx, "当前题目需要选择选项")
	case errors.Is(err, util.ErrTextAnswerExpected):
		util.BadRequest(ctx, "当前题目需要文本答案")
	case errors.Is(err, util.ErrQuestionNotFound), errors.Is(err, util.ErrAttemptNotFound):
		util.NotFound(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}
