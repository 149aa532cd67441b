package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mindspero/mindspero/internal/api/middleware"
	"github.com/mindspero/mindspero/internal/pkg/errors"
	"github.com/mindspero/mindspero/internal/pkg/utils"
	"github.com/mindspero/mindspero/internal/pkg/validator"
)

// maxJSONBody bounds request bodies decoded by decodeJSON
const maxJSONBody = 1 << 20

// requireUser returns the authenticated user ID or writes 401
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok || userID == "" {
		utils.WriteError(w, errors.Unauthorized("User not authenticated"))
		return "", false
	}
	return userID, true
}

// decodeJSON decodes and validates a request body, writing 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, v *validator.Validator, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return false
	}
	if validationErrs := v.Validate(dst); len(validationErrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", validationErrs))
		return false
	}
	return true
}
