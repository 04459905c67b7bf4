package metrics

// InitializeMetrics pre-populates expected label combinations so that every
// metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, op := range []string{"initialize_schema", "insert_model", "update_model",
		"delete_model", "list_models", "get_model_by_slug", "begin_transaction"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}

	for _, decision := range []string{"insert", "update", "delete", "unchanged", "skip_failed"} {
		RefreshDecisionsTotal.WithLabelValues(decision)
	}

	for _, outcome := range []string{"complete", "aborted", "client_gone"} {
		ArchiveStreamsTotal.WithLabelValues(outcome)
	}

	for _, status := range []string{"success", "error", "no_image"} {
		PreviewGenerationsTotal.WithLabelValues(status)
	}

	for _, status := range []string{"success", "error"} {
		UploadsTotal.WithLabelValues(status)
	}

	for _, pool := range []string{"scan", "archive"} {
		WorkerSlotsInUse.WithLabelValues(pool)
		WorkerAcquireWait.WithLabelValues(pool)
	}

	for _, op := range []string{"stat", "open", "readdir"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}
}
