package upstream

import (
	"context"
	"strings"
)

// CredentialProvider 注入式访问凭证能力
type CredentialProvider interface {
	Credential(ctx context.Context) (string, error)
}

// CredentialFunc 函数形式的凭证提供者
type CredentialFunc func(ctx context.Context) (string, error)

// Credential 实现 CredentialProvider
func (f CredentialFunc) Credential(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticCredential 固定凭证
func StaticCredential(token string) CredentialProvider {
	token = strings.TrimSpace(token)
	return CredentialFunc(func(context.Context) (string, error) {
		return token, nil
	})
}

// ChainCredentials 依次尝试，返回第一个非空凭证
func ChainCredentials(providers ...CredentialProvider) CredentialProvider {
	return CredentialFunc(func(ctx context.Context) (string, error) {
		var firstErr error
		for _, p := range providers {
			if p == nil {
				continue
			}
			token, err := p.Credential(ctx)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if token = strings.TrimSpace(token); token != "" {
				return token, nil
			}
		}
		return "", firstErr
	})
}
