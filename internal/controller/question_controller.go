package controller

import (
	"errors"
	"path/filepath"
	"strings"

	"quiz_bot_backend/internal/service"
	"quiz_bot_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuestionController struct {
	QuestionService *service.QuestionService
}

func NewQuestionController(questionService *service.QuestionService) *QuestionController {
	return &QuestionController{QuestionService: questionService}
}

// SolveRequest 单题练习作答，二选一：选项集合或文本答案
type SolveRequest struct {
	OptionIDs []uint `json:"optionIds"`
	Text      string `json:"text"`
}

// Create godoc
// @Summary 创建题目
// @Description 创建选项题或文本题。选项题至少两个选项且至少一个正确。
// @Tags 题库
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.CreateQuestionInput true "题目内容"
// @Success 201 {object} util.Response{data=service.QuestionDetail} "创建成功"
// @Failure 400 {object} util.Response "题目内容不合法"
// @Failure 401 {object} util.Response "未授权"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/questions [post]
func (c *QuestionController) Create(ctx *gin.Context) {
	var input service.CreateQuestionInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	var createdBy *uint
	if claims := util.GetUserFromContext(ctx); claims != nil {
		createdBy = &claims.UserID
	}

	detail, err := c.QuestionService.CreateQuestion(input, createdBy)
	if err != nil {
		c.validationError(ctx, err)
		return
	}

	util.Created(ctx, detail)
}

// List godoc
// @Summary 题目列表
// @Description 分页列出题目，题干截断展示
// @Tags 题库
// @Produce  json
// @Security BearerAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(20)
// @Success 200 {object} util.PageResponse{data=[]service.QuestionSummary} "题目列表"
// @Failure 401 {object} util.Response "未授权"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/questions [get]
func (c *QuestionController) List(ctx *gin.Context) {
	page, ok := util.ParsePositiveInt(ctx.DefaultQuery("page", "1"))
	if !ok {
		page = 1
	}
	limit, ok := util.ParsePositiveInt(ctx.DefaultQuery("limit", "20"))
	if !ok {
		limit = 20
	}

	summaries, total, err := c.QuestionService.ListQuestions(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.SuccessPage(ctx, summaries, total, page, limit)
}

// Get godoc
// @Summary 题目详情
// @Description 查看题目及其全部选项（含正确标记）
// @Tags 题库
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "题目 ID"
// @Success 200 {object} util.Response{data=service.QuestionDetail} "题目详情"
// @Failure 401 {object} util.Response "未授权"
// @Failure 404 {object} util.Response "题目不存在"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/questions/{id} [get]
func (c *QuestionController) Get(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "无效的题目 ID")
		return
	}

	detail, err := c.QuestionService.GetQuestion(id)
	if err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, detail)
}

// Update godoc
// @Summary 更新题目
// @Description 更新题干与答案，选项整体替换
// @Tags 题库
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "题目 ID"
// @Param   body body service.UpdateQuestionInput true "题目内容"
// @Success 200 {object} util.Response{data=service.QuestionDetail} "更新成功"
// @Failure 400 {object} util.Response "题目内容不合法"
// @Failure 401 {object} util.Response "未授权"
// @Failure 404 {object} util.Response "题目不存在"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/questions/{id} [put]
func (c *QuestionController) Update(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "无效的题目 ID")
		return
	}

	var input service.UpdateQuestionInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	detail, err := c.QuestionService.UpdateQuestion(id, input)
	if err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.NotFound(ctx)
		} else {
			c.validationError(ctx, err)
		}
		return
	}

	util.Success(ctx, detail)
}

// Delete godoc
// @Summary 删除题目
// @Description 删除题目及其选项
// @Tags 题库
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "题目 ID"
// @Success 200 {object} util.Response "删除成功"
// @Failure 401 {object} util.Response "未授权"
// @Failure 404 {object} util.Response "题目不存在"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/questions/{id} [delete]
func (c *QuestionController) Delete(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "无效的题目 ID")
		return
	}

	if err := c.QuestionService.DeleteQuestion(id); err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, nil)
}

// Solve godoc
// @Summary 单题练习
// @Description 不开测验会话，直接对指定题目判题
// @Tags 题库
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "题目 ID"
// @Param   body body SolveRequest true "作答内容"
// @Success 200 {object} util.Response{data=service.SolveResult} "判题结果"
// @Failure 400 {object} util.Response "作答类型与题目不符"
// @Failure 401 {object} util.Response "未授权"
// @Failure 404 {object} util.Response "题目不存在"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/questions/{id}/solve [post]
func (c *QuestionController) Solve(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "无效的题目 ID")
		return
	}

	var req SolveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.QuestionService.SolveQuestion(id, req.OptionIDs, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrQuestionNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrChoiceAnswerExpected):
			util.BadRequest(ctx, "该题需要选择选项")
		case errors.Is(err, util.ErrTextAnswerExpected):
			util.BadRequest(ctx, "该题需要文本答案")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, result)
}

// Import godoc
// @Summary 批量导入题目
// @Description 上传文本文件批量导入。题目以空行分隔，"-" 开头的选项为正确答案，单行块视为文本题。
// @Tags 题库
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   file formData file true "题目文件（.txt）"
// @Success 201 {object} util.Response{data=service.ImportResult} "导入结果"
// @Failure 400 {object} util.Response "文件格式不合法"
// @Failure 401 {object} util.Response "未授权"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/questions/import [post]
func (c *QuestionController) Import(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少上传文件")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowed := false
	for _, e := range util.AllowedImportExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		util.BadRequest(ctx, "仅支持 .txt 文件")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	_, mimeErr := util.ValidateMimeType(src, []string{util.MimeTextPlain})
	src.Close()
	if mimeErr != nil {
		util.BadRequest(ctx, "文件内容不是纯文本")
		return
	}

	var createdBy *uint
	if claims := util.GetUserFromContext(ctx); claims != nil {
		createdBy = &claims.UserID
	}

	result, err := c.QuestionService.ImportQuestions(ctx.Request.Context(), file, createdBy)
	if err != nil {
		c.validationError(ctx, err)
		return
	}

	util.Created(ctx, result)
}

func (c *QuestionController) validationError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrDegenerateQuestion):
		util.BadRequest(ctx, "选项题至少需要两个选项")
	case errors.Is(err, util.ErrNoCorrectOption):
		util.BadRequest(ctx, "必须提供至少一个正确答案")
	case errors.Is(err, util.ErrEmptyImportFile):
		util.BadRequest(ctx, "文件中没有可导入的题目")
	default:
		util.LogInternalError(ctx, err)
	}
}
