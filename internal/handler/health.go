package handler

import "net/http"

// HandleHealthz reports process liveness. No dependencies are checked: a
// 200 here only means the server is accepting requests.
func HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
