package domain

import "errors"

// Ошибки доменной модели.
var (
	// ErrInvalidParams — параметры запуска не прошли валидацию.
	ErrInvalidParams = errors.New("invalid run parameters")

	// ErrUnknownPhase — фаза с таким именем не существует.
	ErrUnknownPhase = errors.New("unknown phase")
)

// ValidationError — ошибка валидации с указанием поля.
type ValidationError struct {
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
