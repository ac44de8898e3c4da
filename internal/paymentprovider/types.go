package paymentprovider

import "fmt"

// CreatePaymentIntentRequest параметры платёжного намерения. Amount в минимальных единицах валюты.
type CreatePaymentIntentRequest struct {
	Amount             int64
	Currency           string
	PaymentMethodTypes []string
}

// PaymentIntent ответ процессора.
type PaymentIntent struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
}

// ErrorResponse тело ошибки процессора.
type ErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError ошибка, возвращённая процессором.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("payment provider: %d %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("payment provider: %d: %s", e.StatusCode, e.Message)
}
