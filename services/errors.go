package services

import "net/http"

// Error codes carried alongside messages so callers can tell business
// failures apart from infrastructure ones without parsing text.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeInvalidQuantity    = "INVALID_QUANTITY"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeAlreadyInState     = "ALREADY_IN_STATE"
	CodeInactiveProduct    = "INACTIVE_PRODUCT"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInternal           = "INTERNAL"
	CodeCatalogUnavailable = "CATALOG_UNAVAILABLE"
)

type ServiceError struct {
	Code       string
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func notFoundError(msg string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, StatusCode: http.StatusNotFound, Message: msg}
}

func forbiddenError(msg string) *ServiceError {
	return &ServiceError{Code: CodeForbidden, StatusCode: http.StatusForbidden, Message: msg}
}

func conflictError(msg string) *ServiceError {
	return &ServiceError{Code: CodeConflict, StatusCode: http.StatusConflict, Message: msg}
}

func insufficientStockError(msg string) *ServiceError {
	return &ServiceError{Code: CodeInsufficientStock, StatusCode: http.StatusConflict, Message: msg}
}

func invalidQuantityError(msg string) *ServiceError {
	return &ServiceError{Code: CodeInvalidQuantity, StatusCode: http.StatusBadRequest, Message: msg}
}

func invalidTransitionError(msg string) *ServiceError {
	return &ServiceError{Code: CodeInvalidTransition, StatusCode: http.StatusConflict, Message: msg}
}

func alreadyInStateError(msg string) *ServiceError {
	return &ServiceError{Code: CodeAlreadyInState, StatusCode: http.StatusConflict, Message: msg}
}

func inactiveProductError(msg string) *ServiceError {
	return &ServiceError{Code: CodeInactiveProduct, StatusCode: http.StatusBadRequest, Message: msg}
}

func validationError(msg string) *ServiceError {
	return &ServiceError{Code: CodeValidation, StatusCode: http.StatusBadRequest, Message: msg}
}

func internalError(msg string) *ServiceError {
	return &ServiceError{Code: CodeInternal, StatusCode: http.StatusInternalServerError, Message: msg}
}

func catalogUnavailableError(msg string) *ServiceError {
	return &ServiceError{Code: CodeCatalogUnavailable, StatusCode: http.StatusBadGateway, Message: msg}
}
