package usecase

import (
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"strconv"
	"time"

	"social-scheduler/domain/dto"
	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/configuration"
	"social-scheduler/infrastructure/logger"
	"social-scheduler/infrastructure/utils"
)

type IUserUsecase interface {
	Login(ctx context.Context, req model.ReqLogin) dto.Res
	Register(ctx context.Context, req model.ReqRegister) dto.Res
}

type userUsecase struct {
	userRepository repository.IUser
}

func NewUserUsecase(userRepository repository.IUser) IUserUsecase {
	return &userUsecase{userRepository: userRepository}
}

func (u *userUsecase) Login(ctx context.Context, req model.ReqLogin) dto.Res {
	var res dto.Res

	user, err := u.userRepository.GetByUserName(ctx, req.UserName)
	if err != nil {
		logger.GetLogger().WithField("user_name", req.UserName).Warn("Login: user not found")
		res.ResponseCode = "401"
		res.ResponseMessage = "Invalid username or password"
		return res
	}
	hashed := fmt.Sprintf("%x", md5.Sum([]byte(req.Password)))
	if hashed != user.Password {
		res.ResponseCode = "401"
		res.ResponseMessage = "Invalid username or password"
		return res
	}

	secretKey := os.Getenv("SECRET_KEY")
	if secretKey == "" {
		secretKey = configuration.C.App.SecretKey
	}
	now := time.Now().UTC()
	token, err := utils.GenerateToken(map[string]interface{}{
		"user_name": user.UserName,
		"iss":       strconv.FormatInt(user.ID, 10),
		"iat":       now.Unix(),
		"exp":       now.Add(24 * time.Hour).Unix(),
	}, secretKey)
	if err != nil {
		res.ResponseCode = "500"
		res.ResponseMessage = "Failed to generate token"
		return res
	}

	res.ResponseCode = "200"
	res.ResponseMessage = "OK"
	res.Data = map[string]string{"token": token}
	return res
}

func (u *userUsecase) Register(ctx context.Context, req model.ReqRegister) dto.Res {
	var res dto.Res

	if _, err := u.userRepository.GetByUserName(ctx, req.UserName); err == nil {
		res.ResponseCode = "409"
		res.ResponseMessage = "Username already taken"
		return res
	}

	user := model.User{
		Name:     req.Name,
		UserName: req.UserName,
		Password: req.Password,
	}
	if err := u.userRepository.CreateUser(ctx, user); err != nil {
		res.ResponseCode = "500"
		res.ResponseMessage = "Failed to create user"
		return res
	}

	res.ResponseCode = "200"
	res.ResponseMessage = "OK"
	return res
}
