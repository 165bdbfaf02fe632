package federation

import (
	"encoding/json"
	"net/http"

	"commune.social/core/federation/vocab"
)

// WriteApubResponse serializes data with the federation content type.
func WriteApubResponse(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, data)
}

// WriteTombstoneResponse renders a deleted object. Callers must pick this
// over WriteApubResponse whenever the underlying entity is flagged
// deleted.
func WriteTombstoneResponse(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusGone, data)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", vocab.ContentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
