package monitor

import (
	"time"

	"github.com/trolley-watch/internal/cart"
	"github.com/trolley-watch/internal/constants"
	"github.com/trolley-watch/internal/models"
)

// View 监控视图只读模型
type View struct {
	ID            string       `json:"id"`
	TrolleyCode   string       `json:"trolley_code"`
	TrolleyStatus string       `json:"trolley_status"`
	State         string       `json:"state"`
	Cart          *models.Cart `json:"cart"`
	StatusLabel   string       `json:"status_label,omitempty"`
	TotalPrice    models.Money `json:"total_price"`
	Edit          *EditView    `json:"edit,omitempty"`
	Notice        *cart.Notice `json:"notice,omitempty"`
	LastError     string       `json:"last_error,omitempty"`
	OpenedAt      time.Time    `json:"opened_at"`
	LoadedAt      *time.Time   `json:"loaded_at,omitempty"`
}

// EditView 核验编辑会话只读模型
type EditView struct {
	AuditID       string            `json:"audit_id"`
	Lines         []models.CartLine `json:"lines"`
	Total         models.Money      `json:"total"`
	Committing    bool              `json:"committing"`
	AuditDiverged bool              `json:"audit_diverged"`
}

func (m *Monitor) buildView() View {
	now := m.clock()
	snapshot := m.store.Snapshot()
	view := View{
		ID:            m.id,
		TrolleyCode:   m.trolley.Code,
		TrolleyStatus: m.trolley.Status,
		State:         m.store.State(),
		Cart:          snapshot,
		TotalPrice:    m.store.TotalPrice(),
		LastError:     m.lastError,
		OpenedAt:      m.openedAt,
	}
	if snapshot != nil {
		view.StatusLabel = constants.CartStatusLabels[snapshot.Status]
	}
	if !m.loadedAt.IsZero() {
		loadedAt := m.loadedAt
		view.LoadedAt = &loadedAt
	}
	if m.session.Active() {
		lines := m.session.Lines()
		view.Edit = &EditView{
			AuditID:       m.session.AuditID(),
			Lines:         lines,
			Total:         cart.LinesTotal(lines),
			Committing:    m.committing,
			AuditDiverged: m.session.Diverged(snapshot),
		}
	}
	if notice, ok := m.notices.Current(now); ok {
		view.Notice = &notice
	}
	return view
}
