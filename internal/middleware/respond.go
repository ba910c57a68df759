package middleware

import (
	"encoding/json"
	"net/http"

	svcErr "github.com/oggyb/matchfeed/internal/errors"
)

// writeError renders err as {code, message}, the body every handler uses.
func writeError(w http.ResponseWriter, err error) {
	e := svcErr.Map(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": string(e.Code), "message": e.Message})
}
