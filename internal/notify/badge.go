package notify

import (
	"strconv"
	"sync"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
)

// Badge colors per dominant level.
const (
	colorCritical = "#EF4444"
	colorHigh     = "#F97316"
	colorModerate = "#EAB308"
	colorDefault  = "#6B7280"
)

// Badge is the compact summary of recent alerts. An empty Text means no
// badge should be shown.
type Badge struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// Summarize folds recent alerts into a badge. Critical and high collapse
// to an exclamation mark in their color; lower levels show the count.
func Summarize(alerts []domain.Alert) Badge {
	if len(alerts) == 0 {
		return Badge{}
	}

	dominant := domain.LevelInfo
	for _, a := range alerts {
		if a.Level.Rank() > dominant.Rank() {
			dominant = a.Level
		}
	}

	switch dominant {
	case domain.LevelCritical:
		return Badge{Text: "!", Color: colorCritical}
	case domain.LevelHigh:
		return Badge{Text: "!", Color: colorHigh}
	case domain.LevelModerate:
		return Badge{Text: strconv.Itoa(len(alerts)), Color: colorModerate}
	default:
		return Badge{Text: strconv.Itoa(len(alerts)), Color: colorDefault}
	}
}

// BadgeKeeper holds the currently displayed badge for the API to serve.
type BadgeKeeper struct {
	mu    sync.RWMutex
	badge Badge
}

func (k *BadgeKeeper) Set(b Badge) {
	k.mu.Lock()
	k.badge = b
	k.mu.Unlock()
}

func (k *BadgeKeeper) Clear() {
	k.Set(Badge{})
}

func (k *BadgeKeeper) Current() Badge {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.badge
}
