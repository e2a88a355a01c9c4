package service

import (
	"errors"
	"time"

	"quiz_bot_backend/internal/config"
	"quiz_bot_backend/internal/model"
	"quiz_bot_backend/internal/repository"
	"quiz_bot_backend/internal/util"
	"quiz_bot_backend/pkg/logger"

	"go.uber.org/zap"
)

type UserService struct {
	UserRepo *repository.UserRepository
	Config   *config.Config
}

func NewUserService(userRepo *repository.UserRepository, cfg *config.Config) *UserService {
	return &UserService{UserRepo: userRepo, Config: cfg}
}

// LinkInput 聊天端绑定请求，chat id 由外层机器人传入
type LinkInput struct {
	ChatID    int64  `json:"chatId" binding:"required"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type LinkResult struct {
	Token   string `json:"token"`
	UserID  uint   `json:"userId"`
	Created bool   `json:"created"`
}

// Link 按 chat id 查找或建立账号并签发访问令牌。
// 已存在的账号会刷新资料字段和最后活跃时间。
func (s *UserService) Link(input LinkInput) (*LinkResult, error) {
	created := false

	user, err := s.UserRepo.FindByChatID(input.ChatID)
	if err != nil {
		if !errors.Is(err, util.ErrUserNotFound) {
			return nil, err
		}
		user = &model.User{
			ChatID:    input.ChatID,
			Username:  input.Username,
			FirstName: input.FirstName,
			LastName:  input.LastName,
			LastSeen:  time.Now(),
		}
		if err := s.UserRepo.Create(user); err != nil {
			return nil, err
		}
		created = true
		logger.Log.Info("user linked", zap.Int64("chat_id", input.ChatID), zap.Uint("user_id", user.ID))
	} else {
		user.Username = input.Username
		user.FirstName = input.FirstName
		user.LastName = input.LastName
		user.LastSeen = time.Now()
		if err := s.UserRepo.Update(user); err != nil {
			return nil, err
		}
	}

	token, err := util.GenerateJWT(user.ID, user.ChatID, s.Config.JWT.Secret, s.Config.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	return &LinkResult{Token: token, UserID: user.ID, Created: created}, nil
}

func (s *UserService) GetProfile(userID uint) (*model.User, error) {
	return s.UserRepo.FindByID(userID)
}
