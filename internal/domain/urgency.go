package domain

import (
	"fmt"
	"time"
)

// UrgencyPolicy decides which pending work orders must be escalated.
// Threshold is operator-configurable, not a constant.
type UrgencyPolicy struct {
	Threshold time.Duration
}

// IsUrgent reports whether a work order needs priority attention at the given
// instant. A non-terminal order is urgent when its priority is Urgente, or when
// it has gone without updates for longer than the threshold.
func (p UrgencyPolicy) IsUrgent(w *WorkOrder, now time.Time) bool {
	if IsTerminal(w.Etapa) {
		return false
	}
	if w.Prioridad == PrioridadUrgente {
		return true
	}
	return now.Sub(w.UpdatedAt) > p.Threshold
}

// FormatElapsed renders the age of a timestamp for display, bucketed into
// days, hours or minutes with a floor of one minute.
func FormatElapsed(since, now time.Time) string {
	elapsed := now.Sub(since)
	switch {
	case elapsed >= 24*time.Hour:
		days := int(elapsed.Hours() / 24)
		return fmt.Sprintf("hace %d %s", days, pluralize(days, "día", "días"))
	case elapsed >= time.Hour:
		hours := int(elapsed.Hours())
		return fmt.Sprintf("hace %d %s", hours, pluralize(hours, "hora", "horas"))
	default:
		minutes := int(elapsed.Minutes())
		if minutes < 1 {
			minutes = 1
		}
		return fmt.Sprintf("hace %d %s", minutes, pluralize(minutes, "minuto", "minutos"))
	}
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
