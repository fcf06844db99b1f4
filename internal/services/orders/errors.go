package orders

import (
	"github.com/pkg/errors"
	"github.com/subul/order-gateway/internal/integrations/backend"
)

// Пользовательские сообщения (арабский интерфейс Subul).
const (
	msgPhoneRequired      = "رقم هاتف الزبون مطلوب"
	msgCustomerSaveFailed = "تعذّر حفظ بيانات الزبون، حاول مرة أخرى"
	msgOrderSaveFailed    = "تعذّر حفظ الطلب، حاول مرة أخرى"
	msgConfirmFailed      = "تم حفظ الطلب لكن تعذّر تأكيده"
	msgDeleteFailed       = "تعذّر حذف الطلب"
	msgDeleteConfirmed    = "لا يمكن حذف طلب مؤكّد"
	msgListFailed         = "تعذّر تحميل الطلبات"
)

// WorkflowError несёт локализованный текст для пользователя и причину для логов.
// Field непустой у локальных ошибок валидации (ошибка уровня поля формы).
type WorkflowError struct {
	UserMessage string
	Field       string
	Err         error
}

func (e *WorkflowError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.UserMessage
}

func (e *WorkflowError) Unwrap() error { return e.Err }

// userErr оборачивает сетевую ошибку; структурированное 4xx-сообщение
// бэкенда показываем вместо общего текста.
func userErr(generic string, cause error) *WorkflowError {
	var apiErr *backend.APIError
	if errors.As(cause, &apiErr) && apiErr.Message != "" {
		return &WorkflowError{UserMessage: apiErr.Message, Err: cause}
	}
	return &WorkflowError{UserMessage: generic, Err: cause}
}

func fieldErr(field, msg string) *WorkflowError {
	return &WorkflowError{UserMessage: msg, Field: field}
}
