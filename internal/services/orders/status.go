package orders

import (
	"strings"

	"github.com/subul/order-gateway/internal/models"
)

// TargetStatus вычисляет статус, с которым заказ должен быть сохранён,
// только из полноты полей формы: New, если заполнены имя и телефон клиента,
// локация и стоимость (>= 0, ноль считается), иначе Draft.
// Для админа в предикат дополнительно входит распределитель.
// Pending и Confirmed здесь не вычисляются никогда.
func TargetStatus(in SubmitInput) string {
	complete := strings.TrimSpace(in.Customer.Name) != "" &&
		strings.TrimSpace(in.Customer.Phone) != "" &&
		locationChosen(in.Location) &&
		in.Cost != nil && *in.Cost >= 0

	if in.Role == models.RoleAdmin {
		complete = complete && in.DistributorID != nil
	}

	if complete {
		return models.OrderStatusNew
	}
	return models.OrderStatusDraft
}

func locationChosen(ref models.LocationRef) bool {
	if strings.TrimSpace(ref.Name) != "" {
		return true
	}
	return ref.Saved && ref.ID != 0
}
