package handlers

import (
	"net/http"
	"os/exec"
)

// Health reports service liveness and whether audio extraction is available
func Health(w http.ResponseWriter, r *http.Request) {
	_, err := exec.LookPath("ffmpeg")
	jsonResponse(w, map[string]interface{}{
		"status":     "ok",
		"extraction": err == nil,
	}, http.StatusOK)
}
