package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"model-library/internal/archive"
	"model-library/internal/logging"
	"model-library/internal/streaming"

	"github.com/gorilla/mux"
)

// DownloadArchive streams a zip archive of one model folder. The archive
// is generated while it streams, so no Content-Length is set; if the
// client disconnects mid-stream the response is simply truncated.
func (h *Handlers) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	folder := mux.Vars(r)["folder"]

	if _, err := h.streamer.Resolve(folder); err != nil {
		switch {
		case errors.Is(err, archive.ErrInvalidPath), errors.Is(err, archive.ErrNotFound):
			writeJSONError(w, "Folder not found", http.StatusNotFound)
		default:
			logging.Error("Download resolve failed for %q: %v", folder, err)
			writeJSONError(w, "Failed to resolve folder", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", archive.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", folder+".zip"))

	// Stalled clients are cut off rather than pinning a compression
	// worker indefinitely.
	tw := streaming.NewTimeoutWriter(r.Context(), w, streaming.DefaultTimeoutWriterConfig())
	defer tw.Close()

	if err := h.streamer.Stream(tw.Context(), folder, tw); err != nil {
		// Headers are gone; nothing useful can be sent to the client.
		logging.Error("Download of %q did not complete after %d bytes: %v", folder, tw.BytesWritten(), err)
	}
}
