package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hoursly/internal/common"
)

// pathID reads a numeric id URL parameter. A malformed id can never match
// a record, so it is answered with notFoundMsg.
func pathID(w http.ResponseWriter, r *http.Request, name, notFoundMsg string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		common.RespondWithError(w, http.StatusNotFound, notFoundMsg)
		return 0, false
	}
	return id, true
}

// decodeBody decodes a JSON request body into dst. Numbers are kept as
// json.Number so integer fields do not pass through float64.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func noLimit(next http.Handler) http.Handler { return next }
