package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/trolley-watch/internal/cache"
	"github.com/trolley-watch/internal/config"
	"github.com/trolley-watch/internal/constants"
	"github.com/trolley-watch/internal/models"
	"github.com/trolley-watch/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

// OperatorClaims 操作员 JWT 声明
type OperatorClaims struct {
	OperatorID   uint   `json:"operator_id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// OperatorAuthService 操作员认证服务
type OperatorAuthService struct {
	cfg          *config.JWTConfig
	operatorRepo repository.OperatorRepository
	now          func() time.Time
}

// NewOperatorAuthService 创建操作员认证服务
func NewOperatorAuthService(cfg *config.JWTConfig, operatorRepo repository.OperatorRepository) *OperatorAuthService {
	return &OperatorAuthService{
		cfg:          cfg,
		operatorRepo: operatorRepo,
		now:          time.Now,
	}
}

// CreateOperator 创建操作员
func (s *OperatorAuthService) CreateOperator(username, role string) (*models.Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	role = strings.TrimSpace(role)
	if role == "" {
		role = constants.OperatorRoleViewer
	}
	if !IsValidOperatorRole(role) {
		return nil, ErrOperatorRoleInvalid
	}
	existing, err := s.operatorRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrOperatorExists
	}
	operator := &models.Operator{Username: username, Role: role, IsActive: true}
	if err := s.operatorRepo.Create(operator); err != nil {
		return nil, err
	}
	return operator, nil
}

// IssueToken 为操作员签发令牌，ttl 为 0 时使用配置的有效期
func (s *OperatorAuthService) IssueToken(username string, ttl time.Duration) (string, time.Time, error) {
	operator, err := s.operatorRepo.GetByUsername(username)
	if err != nil {
		return "", time.Time{}, err
	}
	if operator == nil {
		return "", time.Time{}, ErrOperatorNotFound
	}
	if !operator.IsActive {
		return "", time.Time{}, ErrOperatorDisabled
	}
	return s.GenerateJWT(operator, ttl)
}

// GenerateJWT 生成 JWT Token
func (s *OperatorAuthService) GenerateJWT(operator *models.Operator, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		hours := s.cfg.ExpireHours
		if hours <= 0 {
			hours = 12
		}
		ttl = time.Duration(hours) * time.Hour
	}
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := OperatorClaims{
		OperatorID:   operator.ID,
		Username:     operator.Username,
		Role:         operator.Role,
		TokenVersion: operator.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 解析 JWT Token
func (s *OperatorAuthService) ParseJWT(tokenString string) (*OperatorClaims, error) {
	if strings.TrimSpace(s.cfg.SecretKey) == "" {
		return nil, fmt.Errorf("%w: jwt secret missing", ErrTokenInvalid)
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &OperatorClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || claims.OperatorID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Authenticate 校验令牌并返回当前鉴权快照（优先读缓存）
func (s *OperatorAuthService) Authenticate(ctx context.Context, tokenString string) (*OperatorClaims, *cache.OperatorAuthState, error) {
	claims, err := s.ParseJWT(tokenString)
	if err != nil {
		return nil, nil, err
	}

	state, hit, cacheErr := cache.GetOperatorAuthState(ctx, claims.OperatorID)
	if cacheErr != nil || !hit || state == nil {
		operator, err := s.operatorRepo.GetByID(claims.OperatorID)
		if err != nil {
			return nil, nil, err
		}
		if operator == nil {
			return nil, nil, ErrTokenInvalid
		}
		state = cache.BuildOperatorAuthState(operator)
		_ = cache.SetOperatorAuthState(ctx, state)
	}

	if !state.IsActive {
		return nil, nil, ErrOperatorDisabled
	}
	if claims.TokenVersion != state.TokenVersion || !issuedAfterUnix(claims.IssuedAt, state.TokenInvalidBefore) {
		return nil, nil, ErrTokenRevoked
	}
	return claims, state, nil
}

// RevokeTokens 吊销操作员全部令牌
func (s *OperatorAuthService) RevokeTokens(ctx context.Context, username string) error {
	operator, err := s.operatorRepo.GetByUsername(username)
	if err != nil {
		return err
	}
	if operator == nil {
		return ErrOperatorNotFound
	}
	now := s.now()
	operator.TokenVersion++
	operator.TokenInvalidBefore = &now
	if err := s.operatorRepo.Update(operator); err != nil {
		return err
	}
	if err := cache.DelOperatorAuthState(ctx, operator.ID); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// IsValidOperatorRole 判断角色是否合法
func IsValidOperatorRole(role string) bool {
	return role == constants.OperatorRoleViewer || role == constants.OperatorRoleAuditor
}

func issuedAfterUnix(issuedAt *jwt.NumericDate, invalidBefore int64) bool {
	if invalidBefore <= 0 {
		return true
	}
	if issuedAt == nil {
		return false
	}
	return issuedAt.Unix() >= invalidBefore
}
