package errprocess

import (
	"errors"
	"portfolio_social_service/pkg/logger"
)

// ErrUnauthorized API 回應 401，視為未登入而非硬錯誤
var ErrUnauthorized = errors.New("unauthorized")

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}
