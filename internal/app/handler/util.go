package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"miniwallet/internal/app/apperr"
	"miniwallet/internal/app/model"
)

// Envelope is the wire envelope of every response: status is "success" for
// 2xx, "fail" for 4xx and "error" for 5xx.
type Envelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

// readBody into json struct
func readBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		return fmt.Errorf("body read: %w", err)
	}

	err = json.Unmarshal(body, v)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

func writeEnvelope(w http.ResponseWriter, status string, v interface{}, statusCode int) {
	resBody, err := json.Marshal(Envelope{Status: status, Data: v})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(resBody)
}

// WriteSuccess wraps v in a success envelope
func WriteSuccess(w http.ResponseWriter, v interface{}, statusCode int) {
	writeEnvelope(w, "success", v, statusCode)
}

// WriteFail wraps v in a fail envelope (caller-side problem)
func WriteFail(w http.ResponseWriter, v interface{}, statusCode int) {
	writeEnvelope(w, "fail", v, statusCode)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

// WriteAppError maps an application failure to its wire form. Codes are the
// ones from apperr; storage internals never reach the caller.
func WriteAppError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError

	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrWalletDisabled):
		statusCode = http.StatusNotFound
	case errors.Is(err, apperr.ErrReferenceConflict):
		statusCode = http.StatusConflict
	case errors.Is(err, apperr.ErrInvalidInput),
		errors.Is(err, apperr.ErrConfirmationRequired),
		errors.Is(err, apperr.ErrAlreadyEnabled),
		errors.Is(err, apperr.ErrAlreadyDisabled),
		errors.Is(err, apperr.ErrInsufficientFunds),
		errors.Is(err, apperr.ErrDuplicateReference):
		statusCode = http.StatusBadRequest
	}

	body := errorBody{Code: apperr.CodeOf(err)}
	if statusCode < http.StatusInternalServerError {
		body.Message = err.Error()
		WriteFail(w, body, statusCode)
		return
	}

	body.Message = "internal error"
	writeEnvelope(w, "error", body, statusCode)
}

type ValidationErrorResponse struct {
	Errors ValidationErrors `json:"errors"`
}

type ValidationErrors []ValidationError

type ValidationError struct {
	Msg   string `json:"msg"`
	Param string `json:"param"`
	Value string `json:"value"`
}

// validateData and send errors, returns true if no validation errors
func validateData(w http.ResponseWriter, v interface{}) bool {
	validate := validator.New()
	err := validate.Struct(v)
	if err != nil {
		ee := make(ValidationErrors, 0)
		for _, err := range err.(validator.ValidationErrors) {
			ee = append(ee, ValidationError{
				Msg:   err.Error(),
				Param: err.Field(),
				Value: fmt.Sprintf("%v", err.Value()),
			})
		}
		WriteFail(w, ValidationErrorResponse{ee}, http.StatusBadRequest)
		return false
	}

	return true
}

type ContextKeyCustomer struct{}

func ReadContextCustomer(ctx context.Context) (*model.Customer, error) {
	v := ctx.Value(ContextKeyCustomer{})
	if c, ok := v.(*model.Customer); ok {
		return c, nil
	}

	return nil, apperr.ErrUnauthorized
}
