package handlers

import (
	"time"

	"model-library/internal/archive"
	"model-library/internal/database"
	"model-library/internal/reconciler"
	"model-library/internal/startup"
	"model-library/internal/upload"
)

type Handlers struct {
	db          *database.Database
	reconciler  *reconciler.Reconciler
	streamer    *archive.Streamer
	receiver    *upload.Receiver
	assetPrefix string
	cachePrefix string
	startedAt   time.Time
}

func New(db *database.Database, rec *reconciler.Reconciler, streamer *archive.Streamer, receiver *upload.Receiver, config *startup.Config) *Handlers {
	return &Handlers{
		db:          db,
		reconciler:  rec,
		streamer:    streamer,
		receiver:    receiver,
		assetPrefix: config.AssetPrefix,
		cachePrefix: config.CachePrefix,
		startedAt:   time.Now(),
	}
}
