package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/ButyrinIA/yatube/internal/guard"
	"github.com/ButyrinIA/yatube/internal/storage"
)

// FieldErrors - ошибки валидации по полям, отдаются клиенту как есть
type FieldErrors map[string][]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msgs := range e {
		parts = append(parts, field+": "+strings.Join(msgs, "; "))
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

func (e FieldErrors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

type detail struct {
	Detail string `json:"detail"`
}

var errMalformedJSON = errors.New("malformed json")

// WriteJSON пишет тело ответа в JSON
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Ошибка записи ответа: %v", err)
	}
}

// WriteError выбирает код ответа по типу ошибки
func WriteError(w http.ResponseWriter, err error) {
	var fields FieldErrors
	var guardErr *guard.Error
	switch {
	case errors.As(err, &fields):
		WriteJSON(w, http.StatusBadRequest, fields)
	case errors.As(err, &guardErr):
		WriteJSON(w, statusFor(guardErr.Kind), detail{Detail: guardErr.Message})
	case errors.Is(err, errMalformedJSON):
		WriteJSON(w, http.StatusBadRequest, detail{Detail: err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		WriteJSON(w, http.StatusNotFound, detail{Detail: "Not found."})
	default:
		log.Printf("Внутренняя ошибка: %v", err)
		WriteJSON(w, http.StatusInternalServerError, detail{Detail: "internal server error"})
	}
}

func statusFor(kind error) int {
	switch kind {
	case guard.ErrNotAuthenticated:
		return http.StatusUnauthorized
	case guard.ErrPermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// DecodeJSON читает тело запроса в dst. Пустое тело считается пустым объектом.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errMalformedJSON, err)
	}
	return nil
}
