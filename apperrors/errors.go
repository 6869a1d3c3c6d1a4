package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an application error carrying an HTTP-ish code, a
// user-facing message and an optional wrapped cause. Business-rule
// failures travel as values of this type all the way to the HTTP
// boundary; raw infrastructure errors never reach the caller.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches by code and message so a wrapped copy produced by Wrap
// still compares equal to its sentinel under errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && t.Message == e.Message
}

// New creates a new Error.
func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Wrap returns a copy of base carrying err as its cause.
func Wrap(base *Error, err error) *Error {
	return &Error{Code: base.Code, Message: base.Message, Err: err}
}

// UserMessage extracts the user-facing message from err, falling back
// to a generic one for unexpected failures.
func UserMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Erro interno. Tente novamente."
}

// Authentication and lookup failures. Ownership mismatches surface as
// not-found so existence is never leaked to a non-owner.
var (
	ErrUnauthenticated = New(http.StatusUnauthorized, "É necessário estar autenticado.", nil)
	ErrOrderNotFound   = New(http.StatusNotFound, "Pedido não encontrado.", nil)
)

// Cart validation failures.
var (
	ErrEmptyCart         = New(http.StatusBadRequest, "O carrinho está vazio.", nil)
	ErrInvalidCart       = New(http.StatusBadRequest, "Ingresso selecionado é inválido.", nil)
	ErrInsufficientStock = New(http.StatusConflict, "Não há ingressos suficientes disponíveis.", nil)
)

// Payment provider failures.
var (
	ErrProviderUnavailable = New(http.StatusServiceUnavailable, "Pagamento indisponível no momento. Tente novamente mais tarde.", nil)
	ErrChargeDisputed      = New(http.StatusConflict, "O pagamento está em disputa e não pode ser reembolsado automaticamente.", nil)
	// ErrRefundAlreadyProcessed is a flow signal, not a user-visible
	// failure: the provider reports the charge as already refunded, so
	// the caller proceeds to finalize locally.
	ErrRefundAlreadyProcessed = New(http.StatusConflict, "refund already processed by provider", nil)
	ErrRefundFailed           = New(http.StatusBadGateway, "Falha ao processar o reembolso. Tente novamente.", nil)
)

// Persistence failures. ErrRefundNeedsSupport is the dangerous
// partial-failure case: money moved at the provider but the local
// write failed. It must never be conflated with a plain persistence
// failure.
var (
	ErrPersist            = New(http.StatusInternalServerError, "Erro interno. Tente novamente.", nil)
	ErrRefundFinalize     = New(http.StatusInternalServerError, "Não foi possível concluir o reembolso. Tente novamente.", nil)
	ErrRefundNeedsSupport = New(http.StatusInternalServerError, "O reembolso foi processado pelo provedor de pagamento, mas houve uma falha ao atualizar o pedido. Entre em contato com o suporte informando o número do pedido.", nil)
)
