package cache

import (
	"context"
	"strings"

	"github.com/trolley-watch/internal/constants"
)

// GetUpstreamToken 读取 POS 服务端访问凭证
func GetUpstreamToken(ctx context.Context) (string, error) {
	token, err := GetString(ctx, constants.RedisKeyUpstreamToken)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetUpstreamToken 保存 POS 服务端访问凭证
func SetUpstreamToken(ctx context.Context, token string) error {
	return SetString(ctx, constants.RedisKeyUpstreamToken, strings.TrimSpace(token), 0)
}

// ClearUpstreamToken 清除访问凭证
func ClearUpstreamToken(ctx context.Context) error {
	return Del(ctx, constants.RedisKeyUpstreamToken)
}

// UpstreamCredential 以 Redis 为存储的凭证提供者
type UpstreamCredential struct{}

// Credential 返回当前凭证，Redis 未启用时返回空串
func (UpstreamCredential) Credential(ctx context.Context) (string, error) {
	return GetUpstreamToken(ctx)
}
