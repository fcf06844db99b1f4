package orders

import (
	"log/slog"
	"strings"

	"github.com/subul/order-gateway/internal/models"
)

// ReconcileLocation находит авторитетную локацию клиента для ссылки из формы.
// Несохранённый кандидат матчится по имени (и по координатам, если они не
// пустые), сохранённый — по id. Без совпадения берём последнюю локацию
// списка — так ведёт себя legacy-клиент, поведение сохранено намеренно,
// но факт фолбэка логируем.
func ReconcileLocation(persisted []models.Location, candidate models.LocationRef) (models.Location, bool) {
	if len(persisted) == 0 {
		return models.Location{}, false
	}

	if candidate.Saved {
		for _, l := range persisted {
			if l.ID == candidate.ID {
				return l, true
			}
		}
	} else {
		for _, l := range persisted {
			if l.Name != candidate.Name {
				continue
			}
			if candidate.Coordinates != "" && l.Coordinates != candidate.Coordinates {
				continue
			}
			return l, true
		}
	}

	last := persisted[len(persisted)-1]
	slog.Warn("location reconcile fell back to last persisted location",
		"candidate_name", candidate.Name, "fallback_id", last.ID)
	return last, true
}

// DedupLocations убирает дубли по композитному ключу
// lower(trim(name)) + trim(coordinates) + trim(address).
// Остаётся первое вхождение, остальные отбрасываются молча.
func DedupLocations(locs []models.Location) []models.Location {
	seen := make(map[string]struct{}, len(locs))
	out := make([]models.Location, 0, len(locs))
	for _, l := range locs {
		k := strings.ToLower(strings.TrimSpace(l.Name)) + "|" +
			strings.TrimSpace(l.Coordinates) + "|" +
			strings.TrimSpace(l.Address)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, l)
	}
	return out
}
