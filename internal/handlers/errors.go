package handlers

import (
	"net/http"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

var badRequestOnce sync.Once

// UseBadRequestForValidation makes huma report request validation failures
// (missing or mistyped fields) as 400 instead of 422.
func UseBadRequestForValidation() {
	badRequestOnce.Do(func() {
		base := huma.NewError

		huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
			if status == http.StatusUnprocessableEntity {
				status = http.StatusBadRequest
			}

			return base(status, msg, errs...)
		}
	})
}
