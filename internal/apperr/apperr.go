// Package apperr содержит таксономию ошибок каталога.
// Ошибки создаются в хранилищах и шлюзе доступа, без изменений доходят до фасада,
// а в HTTP-коды их переводит только слой handlers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation — не заполнено обязательное поле или значение вне допустимого набора.
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized — токен отсутствует, невалиден или истёк; неверный пароль.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound — неизвестный id, ссылка или fileId.
	ErrNotFound = errors.New("not found")
	// ErrPayloadTooLarge — файл больше настроенного лимита.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrUnsupportedMediaType — загружен не PDF (или пустой файл).
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrSlugConflict — пара (category_slug, slug) уже занята живой заметкой.
	ErrSlugConflict = errors.New("slug conflict")
	// ErrExhausted — попытки подобрать свободный slug исчерпаны.
	ErrExhausted = errors.New("slug attempts exhausted")
	// ErrStorage — ошибка ввода-вывода в нижележащем хранилище.
	ErrStorage = errors.New("storage failure")
)

// Validation оборачивает ErrValidation сообщением для клиента.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Storage оборачивает причину в ErrStorage, сохраняя обе ошибки в цепочке.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
