package cart

import (
	"fmt"
	"strings"

	"github.com/trolley-watch/internal/constants"
	"github.com/trolley-watch/internal/models"
)

// Effect 事件应用后产生的提示效果
type Effect struct {
	Kind            string `json:"kind"`
	Message         string `json:"message"`
	Severity        string `json:"severity"`
	HighPriority    bool   `json:"high_priority"`
	RefreshRequired bool   `json:"refresh_required"`
}

// EffectSet 一次事件应用产生的效果集合
type EffectSet []Effect

func fraudAlertEffect() Effect {
	return Effect{
		Kind:         constants.EventFraudAlert,
		Message:      "Malicious activity detected! Kindly review it immediately!",
		Severity:     constants.SeverityWarning,
		HighPriority: true,
	}
}

func purchaseCompleteEffect(trolleyCode string) Effect {
	return Effect{
		Kind:            constants.EventPurchaseComplete,
		Message:         fmt.Sprintf("Purchase complete on trolley with code: %s. Refresh to see changes!", trolleyCode),
		Severity:        constants.SeveritySuccess,
		RefreshRequired: true,
	}
}

func cartUpdateEffect(product models.Product) Effect {
	return Effect{
		Kind:     constants.EventCartUpdate,
		Message:  fmt.Sprintf("New item added to cart: %s", productLabel(product)),
		Severity: constants.SeveritySuccess,
	}
}

func fraudUpdateEffect(product models.Product) Effect {
	return Effect{
		Kind:     constants.EventFraudUpdate,
		Message:  fmt.Sprintf("Item added after verification: %s", productLabel(product)),
		Severity: constants.SeverityError,
	}
}

func productLabel(product models.Product) string {
	if name := strings.TrimSpace(product.Name); name != "" {
		return name
	}
	return product.ID
}
