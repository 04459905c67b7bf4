package handlers

import (
	"errors"
	"net/http"

	"model-library/internal/logging"
	"model-library/internal/upload"
)

// UploadResponse reports where an uploaded archive was unpacked.
type UploadResponse struct {
	Status string `json:"status"`
	Folder string `json:"folder"`
}

// UploadModel accepts a zip payload in the request body, spools it to disk
// and unpacks it into a new library folder. The body is streamed with no
// size limit. The new folder enters the catalog on the next refresh.
func (h *Handlers) UploadModel(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = r.Header.Get("X-File-Name")
	}
	if name == "" {
		writeJSONError(w, "Missing file name (use ?name= or X-File-Name)", http.StatusBadRequest)
		return
	}

	folder, err := h.receiver.Receive(name, r.Body)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrEmptyUpload), errors.Is(err, upload.ErrInvalidArchive), errors.Is(err, upload.ErrUnsafeEntry):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, upload.ErrFolderExists):
			writeJSONError(w, err.Error(), http.StatusConflict)
		default:
			logging.Error("Upload failed: %v", err)
			writeJSONError(w, "Upload failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, UploadResponse{Status: "ok", Folder: folder})
}
