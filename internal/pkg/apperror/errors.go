// Package apperror defines the error vocabulary of the account service.
// Пакет apperror определяет словарь ошибок сервиса аккаунтов.
//
// Every error that crosses a service boundary is an *AppError: a stable
// machine code, a message safe to show to the client, the HTTP status it
// maps to, and optionally structured details and a wrapped cause. Handlers
// pass these to the response package unchanged; anything else is collapsed
// to a generic internal error so causes never leak to clients.
// Каждая ошибка, пересекающая границу сервиса, является *AppError:
// стабильный машинный код, сообщение, безопасное для показа клиенту,
// соответствующий HTTP статус и, опционально, структурированные детали и
// обёрнутая причина. Обработчики передают их пакету response без изменений;
// всё остальное сводится к общей внутренней ошибке, чтобы причины никогда
// не утекали к клиентам.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Machine-readable error codes, stable across releases.
// Машиночитаемые коды ошибок, стабильные между релизами.
const (
	CodeNotFound           = "NOT_FOUND"           // Resource not found / Ресурс не найден
	CodeValidation         = "VALIDATION_ERROR"    // Validation failed / Ошибка валидации
	CodeUnauthorized       = "UNAUTHORIZED"        // Authentication required / Требуется аутентификация
	CodeForbidden          = "FORBIDDEN"           // Access denied / Доступ запрещён
	CodeConflict           = "CONFLICT"            // Resource conflict / Конфликт ресурсов
	CodeInternal           = "INTERNAL_ERROR"      // Internal server error / Внутренняя ошибка сервера
	CodeBadRequest         = "BAD_REQUEST"         // Invalid request / Неверный запрос
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"   // Rate limit exceeded / Превышен лимит запросов
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE" // Service unavailable / Сервис недоступен
	CodePasswordExpired    = "PASSWORD_EXPIRED"    // Password has expired / Пароль истёк
	CodeAccountLocked      = "ACCOUNT_LOCKED"      // Account temporarily locked / Аккаунт временно заблокирован
	CodeIPBlocked          = "IP_BLOCKED"          // Client IP rejected / IP клиента отклонён
	CodeExpired            = "EXPIRED"             // Token or code expired / Токен или код истёк
)

// AppError is the structured error carried between layers. Code and Message
// are serialized to clients; HTTPStatus and the wrapped Err stay internal.
// AppError — структурированная ошибка, передаваемая между слоями. Code и
// Message сериализуются клиентам; HTTPStatus и обёрнутая Err остаются
// внутренними.
type AppError struct {
	Code       string                 `json:"code"`              // Error code / Код ошибки
	Message    string                 `json:"message"`           // Error message / Сообщение об ошибке
	HTTPStatus int                    `json:"-"`                 // HTTP status / HTTP статус
	Details    map[string]interface{} `json:"details,omitempty"` // Additional details / Доп. детали
	Err        error                  `json:"-"`                 // Wrapped cause / Обёрнутая причина
}

// Error implements the error interface.
// Error реализует интерфейс error.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
// Unwrap открывает причину для errors.Is и errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails attaches structured details and returns the same error.
// WithDetails прикрепляет структурированные детали и возвращает ту же ошибку.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithError attaches an underlying cause and returns the same error.
// WithError прикрепляет исходную причину и возвращает ту же ошибку.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// New creates an AppError with an arbitrary code, message and HTTP status.
// The named constructors below cover the codes the service actually emits;
// New exists for one-off cases.
// New создаёт AppError с произвольным кодом, сообщением и HTTP статусом.
// Именованные конструкторы ниже покрывают коды, которые сервис реально
// выдаёт; New существует для разовых случаев.
func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// NotFound reports that the named resource does not exist.
// NotFound сообщает, что именованный ресурс не существует.
func NotFound(resource string, id interface{}) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// ValidationError reports rejected input with per-field details.
// ValidationError сообщает об отклонённом вводе с деталями по полям.
func ValidationError(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// Unauthorized reports missing or failed authentication. An empty message
// is replaced with a neutral default.
// Unauthorized сообщает об отсутствующей или неуспешной аутентификации.
// Пустое сообщение заменяется нейтральным значением по умолчанию.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required" // Требуется аутентификация
	}
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden reports an authenticated caller lacking permission. An empty
// message is replaced with a neutral default.
// Forbidden сообщает об аутентифицированном вызывающем без прав. Пустое
// сообщение заменяется нейтральным значением по умолчанию.
func Forbidden(message string) *AppError {
	if message == "" {
		message = "access denied" // Доступ запрещён
	}
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// Conflict reports a uniqueness collision on the given field.
// Conflict сообщает о коллизии уникальности по заданному полю.
func Conflict(resource, field string, value interface{}) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    fmt.Sprintf("%s with this %s already exists", resource, field),
		HTTPStatus: http.StatusConflict,
		Details: map[string]interface{}{
			"resource": resource,
			"field":    field,
			"value":    value,
		},
	}
}

// Internal reports a server-side failure. The cause is kept for logs and
// never reaches the client.
// Internal сообщает об ошибке на стороне сервера. Причина сохраняется для
// логов и никогда не доходит до клиента.
func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// BadRequest reports a malformed request.
// BadRequest сообщает о некорректном запросе.
func BadRequest(message string) *AppError {
	return &AppError{
		Code:       CodeBadRequest,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// TooManyRequests reports a throttled request along with a retry hint in
// seconds.
// TooManyRequests сообщает о троттлинге запроса вместе с подсказкой о
// повторе в секундах.
func TooManyRequests(message string, retryAfter int) *AppError {
	return &AppError{
		Code:       CodeTooManyRequests,
		Message:    message,
		HTTPStatus: http.StatusTooManyRequests,
		Details: map[string]interface{}{
			"retry_after_seconds": retryAfter,
		},
	}
}

// ServiceUnavailable reports a dependency outage.
// ServiceUnavailable сообщает о недоступности зависимости.
func ServiceUnavailable(message string) *AppError {
	return &AppError{
		Code:       CodeServiceUnavailable,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// PasswordExpired reports that the user's password aged out and must be
// replaced before the login can complete.
// PasswordExpired сообщает, что пароль пользователя устарел и должен быть
// заменён до завершения входа.
func PasswordExpired(userID int64) *AppError {
	return &AppError{
		Code:       CodePasswordExpired,
		Message:    "password has expired and must be changed",
		HTTPStatus: http.StatusForbidden,
		Details: map[string]interface{}{
			"user_id":                 userID,
			"require_password_change": true,
		},
	}
}

// AccountLocked creates a lockout error carrying the unlock time so the
// client can display when retrying becomes possible.
// AccountLocked создаёт ошибку блокировки с временем разблокировки, чтобы
// клиент мог показать, когда повтор станет возможен.
func AccountLocked(lockedUntil time.Time) *AppError {
	return &AppError{
		Code:       CodeAccountLocked,
		Message:    "account temporarily locked due to repeated failed logins",
		HTTPStatus: http.StatusForbidden,
		Details: map[string]interface{}{
			"locked_until": lockedUntil.UTC().Format(time.RFC3339),
		},
	}
}

// IPBlocked creates an error for requests rejected by IP rules.
// IPBlocked создаёт ошибку для запросов, отклонённых правилами IP.
func IPBlocked() *AppError {
	return &AppError{
		Code:       CodeIPBlocked,
		Message:    "access from this address is not permitted",
		HTTPStatus: http.StatusForbidden,
	}
}

// Expired creates an error for an expired or invalidated short-lived
// credential (reset token, pre-auth ticket, one-time code). The subject is
// included so the UI can route to the right remediation flow.
// Expired создаёт ошибку для истёкшего или аннулированного краткоживущего
// секрета (токен сброса, pre-auth тикет, одноразовый код). Субъект
// включается, чтобы UI мог направить в нужный процесс исправления.
func Expired(subject string) *AppError {
	return &AppError{
		Code:       CodeExpired,
		Message:    fmt.Sprintf("%s is expired or no longer valid", subject),
		HTTPStatus: http.StatusBadRequest,
		Details: map[string]interface{}{
			"subject": subject,
		},
	}
}

// IsAppError reports whether err is or wraps an AppError.
// IsAppError сообщает, является ли err ошибкой AppError или оборачивает её.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts the AppError from err, unwrapping as needed.
// AsAppError извлекает AppError из err, разворачивая её при необходимости.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromError normalizes any error to an AppError. Errors that are not
// already AppError become a generic internal error; their text is kept only
// in the wrapped cause.
// FromError нормализует любую ошибку в AppError. Ошибки, не являющиеся
// AppError, становятся общей внутренней ошибкой; их текст сохраняется
// только в обёрнутой причине.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal("an unexpected error occurred", err)
}
