// Package response defines the envelope every API endpoint answers with and
// the helpers handlers use to emit it.
// Пакет response определяет конверт, которым отвечает каждый эндпоинт API, и
// хелперы, через которые обработчики его формируют.
package response

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
)

// APIResponse is the envelope of every API reply. Exactly one of Data and
// Error is set; Meta accompanies paginated listings.
// APIResponse — конверт каждого ответа API. Устанавливается ровно одно из
// Data и Error; Meta сопровождает постраничные списки.
type APIResponse struct {
	Success bool        `json:"success"`         // Operation outcome / Результат операции
	Data    interface{} `json:"data,omitempty"`  // Payload / Полезные данные
	Error   *ErrorBody  `json:"error,omitempty"` // Failure details / Детали сбоя
	Meta    *Meta       `json:"meta,omitempty"`  // Pagination / Пагинация
}

// ErrorBody carries the machine-readable code alongside the message shown
// to the user.
// ErrorBody несёт машиночитаемый код вместе с сообщением для пользователя.
type ErrorBody struct {
	Code    string                 `json:"code"`              // Stable error code / Стабильный код ошибки
	Message string                 `json:"message"`           // Human message / Сообщение для человека
	Details map[string]interface{} `json:"details,omitempty"` // Extra context / Дополнительный контекст
}

// Meta describes the page window of a listing.
// Meta описывает страничное окно списка.
type Meta struct {
	Page       int   `json:"page"`        // Current page / Текущая страница
	PageSize   int   `json:"page_size"`   // Items per page / Элементов на странице
	Total      int64 `json:"total"`       // Total items / Всего элементов
	TotalPages int   `json:"total_pages"` // Total pages / Всего страниц
}

// Success replies 200 with data.
// Success отвечает 200 с данными.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// SuccessWithMeta replies 200 with a page of data and its pagination window.
// SuccessWithMeta отвечает 200 со страницей данных и её окном пагинации.
func SuccessWithMeta(c *gin.Context, data interface{}, meta *Meta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: meta})
}

// Created replies 201 with the created resource.
// Created отвечает 201 с созданным ресурсом.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// Error maps any error to the envelope; unknown errors surface as the
// generic internal error so internals never leak to clients.
// Error отображает любую ошибку в конверт; неизвестные ошибки отдаются как
// общая внутренняя ошибка, чтобы внутренности не утекали клиентам.
func Error(c *gin.Context, err error) {
	appErr := apperror.FromError(err)

	c.JSON(appErr.HTTPStatus, APIResponse{
		Success: false,
		Error: &ErrorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
	})
}

// BadRequest replies 400.
// BadRequest отвечает 400.
func BadRequest(c *gin.Context, message string) {
	Error(c, apperror.BadRequest(message))
}

// Unauthorized replies 401; an empty message gets the standard wording.
// Unauthorized отвечает 401; пустое сообщение заменяется стандартным текстом.
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "authentication required"
	}
	Error(c, apperror.Unauthorized(message))
}

// Forbidden replies 403; an empty message gets the standard wording.
// Forbidden отвечает 403; пустое сообщение заменяется стандартным текстом.
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "access denied"
	}
	Error(c, apperror.Forbidden(message))
}

// NotFound replies 404 naming the missing resource.
// NotFound отвечает 404 с указанием отсутствующего ресурса.
func NotFound(c *gin.Context, resource string, id interface{}) {
	Error(c, apperror.NotFound(resource, id))
}

// TooManyRequests replies 429 and sets Retry-After.
// TooManyRequests отвечает 429 и устанавливает Retry-After.
func TooManyRequests(c *gin.Context, message string, retryAfter int) {
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	Error(c, apperror.TooManyRequests(message, retryAfter))
}

// ValidationError replies 400 with per-field details.
// ValidationError отвечает 400 с деталями по полям.
func ValidationError(c *gin.Context, message string, details map[string]interface{}) {
	Error(c, apperror.ValidationError(message, details))
}

// NewMeta computes the page count for a listing window.
// NewMeta вычисляет количество страниц для страничного окна.
func NewMeta(page, pageSize int, total int64) *Meta {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &Meta{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}
