package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable machine-readable error identifier clients branch on.
type Code string

const (
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeForbidden        Code = "FORBIDDEN"
	CodeNotFound         Code = "NOT_FOUND"
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeRateLimited      Code = "RATE_LIMITED"

	CodeInvalidCredentials    Code = "INVALID_CREDENTIALS"
	CodeVendorPendingApproval Code = "VENDOR_PENDING_APPROVAL"
	CodeVendorRejected        Code = "VENDOR_REJECTED"
	CodeOTPInvalid            Code = "OTP_INVALID"
	CodeOTPExpired            Code = "OTP_EXPIRED"

	CodeEmailExists          Code = "EMAIL_EXISTS"
	CodeAlreadyExists        Code = "ALREADY_EXISTS"
	CodeVendorSlotTaken      Code = "VENDOR_SLOT_TAKEN"
	CodeVendorUnavailable    Code = "VENDOR_UNAVAILABLE"
	CodeDuplicateTransaction Code = "DUPLICATE_TRANSACTION"
	CodeStaleState           Code = "STALE_STATE"
	CodeInvalidTransition    Code = "INVALID_TRANSITION"

	CodeGatewayError       Code = "GATEWAY_ERROR"
	CodeGatewayUnavailable Code = "GATEWAY_UNAVAILABLE"
	CodeInvalidSignature   Code = "INVALID_SIGNATURE"
)

type AppError struct {
	Code       Code   `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails attaches client-facing context such as field errors or a status hint.
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

func New(code Code, status int, message string) *AppError {
	return &AppError{Code: code, HTTPStatus: status, Message: message}
}

func Wrap(err error, code Code, status int, message string) *AppError {
	return &AppError{Code: code, HTTPStatus: status, Message: message, Err: err}
}

func Validation(message string) *AppError {
	return New(CodeValidationFailed, http.StatusBadRequest, message)
}

func NotFound(what string) *AppError {
	return New(CodeNotFound, http.StatusNotFound, what+" not found")
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, http.StatusUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, http.StatusForbidden, message)
}

func Conflict(code Code, message string) *AppError {
	return New(code, http.StatusConflict, message)
}

func Internal(err error) *AppError {
	return Wrap(err, CodeInternal, http.StatusInternalServerError, "Internal server error")
}

// As unwraps err into an *AppError when one is present in the chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
