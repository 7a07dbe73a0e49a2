package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/trolley-watch/internal/cache"
	"github.com/trolley-watch/internal/config"
	"github.com/trolley-watch/internal/constants"
	"github.com/trolley-watch/internal/models"
	"github.com/trolley-watch/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.MigrateTables(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	cache.UseClient(nil, "")
	return db
}

func TestTrolleyServiceUpsert(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewTrolleyService(repository.NewTrolleyRepository(db), repository.NewShoppingSessionRepository(db))
	fixed := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	created, err := svc.Upsert(UpsertTrolleyInput{Code: "T-1"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Status != constants.TrolleyStatusAvailable || created.LastUsedAt != nil {
		t.Fatalf("unexpected new trolley: %+v", created)
	}

	if _, err := svc.Upsert(UpsertTrolleyInput{Code: "T-1", Status: constants.TrolleyStatusInUse}); !errors.Is(err, ErrCartRequired) {
		t.Fatalf("expected ErrCartRequired, got %v", err)
	}
	if _, err := svc.Upsert(UpsertTrolleyInput{Code: "T-1", Status: "broken"}); !errors.Is(err, ErrTrolleyStatusInvalid) {
		t.Fatalf("expected ErrTrolleyStatusInvalid, got %v", err)
	}

	cartID := "cart-1"
	updated, err := svc.Upsert(UpsertTrolleyInput{Code: "T-1", Status: constants.TrolleyStatusInUse, CurrentCart: &cartID})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.LastUsedAt == nil || !updated.LastUsedAt.Equal(fixed) {
		t.Fatalf("last used should be recorded: %+v", updated.LastUsedAt)
	}

	got, err := svc.GetByCode("T-1")
	if err != nil || got.CurrentCart != "cart-1" {
		t.Fatalf("unexpected trolley: %+v %v", got, err)
	}
	if _, err := svc.GetByCode("T-404"); !errors.Is(err, ErrTrolleyNotFound) {
		t.Fatalf("expected ErrTrolleyNotFound, got %v", err)
	}
}

func TestTrolleyServiceHistory(t *testing.T) {
	db := setupServiceDB(t)
	sessionRepo := repository.NewShoppingSessionRepository(db)
	svc := NewTrolleyService(repository.NewTrolleyRepository(db), sessionRepo)
	if _, err := svc.Upsert(UpsertTrolleyInput{Code: "T-1"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := sessionRepo.Create(&models.ShoppingSession{TrolleyCode: "T-1", CartID: "c1", VerifiedTime: time.Now()}); err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	sessions, total, err := svc.History("T-1", 1, 20)
	if err != nil || total != 1 || sessions[0].CartID != "c1" {
		t.Fatalf("unexpected history: %+v %d %v", sessions, total, err)
	}
	if _, _, err := svc.History("T-404", 1, 20); !errors.Is(err, ErrTrolleyNotFound) {
		t.Fatalf("expected ErrTrolleyNotFound, got %v", err)
	}
}

func TestOperatorAuthServiceTokenLifecycle(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewOperatorAuthService(&config.JWTConfig{SecretKey: "test-secret", ExpireHours: 1}, repository.NewOperatorRepository(db))
	issuedAt := time.Now().Add(-time.Minute).Truncate(time.Second)
	svc.now = func() time.Time { return issuedAt }

	if _, err := svc.CreateOperator("alice", "admin"); !errors.Is(err, ErrOperatorRoleInvalid) {
		t.Fatalf("expected ErrOperatorRoleInvalid, got %v", err)
	}
	operator, err := svc.CreateOperator("alice", constants.OperatorRoleAuditor)
	if err != nil {
		t.Fatalf("create operator failed: %v", err)
	}
	if _, err := svc.CreateOperator("alice", ""); !errors.Is(err, ErrOperatorExists) {
		t.Fatalf("expected ErrOperatorExists, got %v", err)
	}

	token, _, err := svc.IssueToken("alice", 0)
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	claims, state, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if claims.OperatorID != operator.ID || state.Role != constants.OperatorRoleAuditor {
		t.Fatalf("unexpected claims: %+v %+v", claims, state)
	}

	svc.now = func() time.Time { return issuedAt.Add(time.Second) }
	if err := svc.RevokeTokens(context.Background(), "alice"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}

	if _, _, err := svc.Authenticate(context.Background(), "not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
