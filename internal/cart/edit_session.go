package cart

import (
	"context"
	"fmt"

	"github.com/trolley-watch/internal/models"
)

// Syncer 将编辑后的核验商品同步到 POS 服务端
type Syncer interface {
	SyncAudit(ctx context.Context, auditID string, lines []models.CartLine) error
}

// EditSession 核验商品编辑会话
//
// 编辑只作用于开始时拷贝的缓冲区，实时事件不会写入缓冲区；提交成功后由调用方整体重新拉取快照。
type EditSession struct {
	active  bool
	auditID string
	base    []models.CartLine
	buffer  []models.CartLine
}

// BeginEdit 基于当前快照开始编辑，没有核验商品时拒绝
func BeginEdit(snapshot *models.Cart) (*EditSession, error) {
	if snapshot == nil {
		return nil, ErrNoCartLoaded
	}
	items := snapshot.AuditItems()
	if len(items) == 0 {
		return nil, ErrNoAuditItems
	}
	return &EditSession{
		active:  true,
		auditID: snapshot.AuditID(),
		base:    models.CloneLines(items),
		buffer:  models.CloneLines(items),
	}, nil
}

// Active 会话是否仍在进行
func (s *EditSession) Active() bool {
	return s != nil && s.active
}

// AuditID 开始编辑时的核验单ID
func (s *EditSession) AuditID() string {
	if s == nil {
		return ""
	}
	return s.auditID
}

// Lines 返回缓冲区拷贝
func (s *EditSession) Lines() []models.CartLine {
	if s == nil {
		return nil
	}
	return models.CloneLines(s.buffer)
}

// SetQuantity 修改指定行的数量
func (s *EditSession) SetQuantity(index, quantity int) error {
	if !s.Active() {
		return ErrSessionInactive
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrQuantityInvalid, quantity)
	}
	if index < 0 || index >= len(s.buffer) {
		return fmt.Errorf("%w: %d", ErrLineIndexInvalid, index)
	}
	s.buffer[index].Quantity = quantity
	return nil
}

// Remove 删除指定行，后续行前移
func (s *EditSession) Remove(index int) error {
	if !s.Active() {
		return ErrSessionInactive
	}
	if index < 0 || index >= len(s.buffer) {
		return fmt.Errorf("%w: %d", ErrLineIndexInvalid, index)
	}
	s.buffer = append(s.buffer[:index], s.buffer[index+1:]...)
	return nil
}

// Cancel 放弃编辑
func (s *EditSession) Cancel() {
	if s == nil {
		return
	}
	s.active = false
	s.buffer = nil
	s.base = nil
}

// CommitPayload 返回待提交的核验单ID与完整缓冲区
func (s *EditSession) CommitPayload() (string, []models.CartLine, error) {
	if !s.Active() {
		return "", nil, ErrSessionInactive
	}
	return s.auditID, models.CloneLines(s.buffer), nil
}

// MarkCommitted 提交成功后结束会话
func (s *EditSession) MarkCommitted() {
	s.Cancel()
}

// Commit 同步缓冲区；成功结束会话，失败时保留缓冲区供重试
//
// 等价于 CommitPayload、SyncAudit 后接 MarkCommitted 的同步写法。
// 监控视图在处理协程外提交，因此分步调用。
func (s *EditSession) Commit(ctx context.Context, syncer Syncer) error {
	auditID, lines, err := s.CommitPayload()
	if err != nil {
		return err
	}
	if syncer == nil {
		return fmt.Errorf("audit syncer is nil")
	}
	if err := syncer.SyncAudit(ctx, auditID, lines); err != nil {
		return err
	}
	s.MarkCommitted()
	return nil
}

// Diverged 实时快照中的核验商品是否已偏离开始编辑时的内容
func (s *EditSession) Diverged(live *models.Cart) bool {
	if !s.Active() {
		return false
	}
	if live.AuditID() != s.auditID {
		return true
	}
	items := live.AuditItems()
	if len(items) != len(s.base) {
		return true
	}
	for i := range items {
		if items[i].Product.ID != s.base[i].Product.ID || items[i].Quantity != s.base[i].Quantity {
			return true
		}
	}
	return false
}
