package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lucaspatel/kl-slack/internal/filestore"
	"github.com/lucaspatel/kl-slack/internal/metrics"
	"github.com/lucaspatel/kl-slack/internal/notify"
	"github.com/lucaspatel/kl-slack/internal/replytext"
	"github.com/lucaspatel/kl-slack/internal/retriever"
	"github.com/lucaspatel/kl-slack/internal/router"
)

const defaultRequestTimeout = 30 * time.Second

type Downloader interface {
	Download(ctx context.Context, d retriever.Descriptor) ([]byte, error)
}

// FileShare ingests the first file of a file_share message. Each run ends in
// exactly one reply: saved, no file, rejected, download failed or save failed.
type FileShare struct {
	Downloader Downloader
	Store      filestore.Store
	Notifier   notify.Publisher
	Replies    *replytext.Catalog
	// Now stamps the stored name; defaults to time.Now.
	Now            func() time.Time
	RequestTimeout time.Duration
	// SniffContent re-checks downloaded bytes with content detection.
	SniffContent bool
}

func (h *FileShare) Handle(ctx context.Context, hc *router.Context) error {
	logger := hc.Logger

	ref, err := retriever.Resolve(hc.Event)
	if err != nil {
		logger.Warn("file_share_no_reference")
		return h.finish(ctx, hc, metrics.OutcomeNoFile, replytext.NoFile, replytext.Data{})
	}
	logger = logger.With("file_id", ref.ID)

	lookupCtx, cancel := context.WithTimeout(ctx, h.requestTimeout())
	details, err := retriever.FetchDetails(lookupCtx, hc.Files, ref.ID)
	cancel()
	if err != nil {
		logger.Warn("file_share_details_error", "error", err.Error())
		return h.finish(ctx, hc, metrics.OutcomeFetchFailed, replytext.DownloadFailed, replytext.Data{})
	}
	desc := merge(details, ref)

	if !retriever.IsAllowedMimeType(desc.MimeType) {
		logger.Info("file_share_rejected", "mimetype", desc.MimeType)
		return h.finish(ctx, hc, metrics.OutcomeRejected, replytext.UnsupportedType, replytext.Data{})
	}

	start := time.Now()
	data, err := h.Downloader.Download(ctx, desc)
	metrics.ObserveDownload(time.Since(start))
	if err != nil {
		var fe *retriever.FetchError
		status := 0
		if errors.As(err, &fe) {
			status = fe.Status
		}
		logger.Warn("file_share_download_error", "status", status, "error", err.Error())
		return h.finish(ctx, hc, metrics.OutcomeFetchFailed, replytext.DownloadFailed, replytext.Data{})
	}

	if h.SniffContent {
		if err := retriever.SniffPDF(data); err != nil {
			logger.Info("file_share_rejected", "mimetype", desc.MimeType, "error", err.Error())
			return h.finish(ctx, hc, metrics.OutcomeRejected, replytext.UnsupportedType, replytext.Data{})
		}
	}

	stored, err := h.Store.Save(ctx, data, desc.Name, h.now())
	if err != nil {
		logger.Error("file_share_storage_error", "bytes", len(data), "error", err.Error())
		return h.finish(ctx, hc, metrics.OutcomeStorageFailed, replytext.SaveFailed, replytext.Data{})
	}
	metrics.AddSavedBytes(stored.SizeBytes)
	logger.Info("file_saved", "path", stored.Path, "bytes", stored.SizeBytes)

	if h.Notifier != nil {
		err := h.Notifier.PublishFileStored(ctx, notify.FileStored{
			FileID:    desc.ID,
			Name:      desc.Name,
			Path:      stored.Path,
			SizeBytes: stored.SizeBytes,
			ChannelID: hc.Event.ChannelID,
			UserID:    hc.Event.UserID,
			SavedAt:   stored.SavedAt,
		})
		if err != nil {
			logger.Warn("file_share_notify_error", "error", err.Error())
		}
	}
	return h.finish(ctx, hc, metrics.OutcomeSaved, replytext.Saved, replytext.Data{Path: stored.Path})
}

func (h *FileShare) finish(ctx context.Context, hc *router.Context, outcome string, key replytext.Key, data replytext.Data) error {
	metrics.ObserveIngestion(outcome)
	if err := hc.Say(ctx, h.Replies.Render(key, data)); err != nil {
		return fmt.Errorf("send %s reply: %w", outcome, err)
	}
	return nil
}

func (h *FileShare) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *FileShare) requestTimeout() time.Duration {
	if h.RequestTimeout > 0 {
		return h.RequestTimeout
	}
	return defaultRequestTimeout
}

// merge prefers looked-up details and falls back to what the event carried.
func merge(details, ref retriever.Descriptor) retriever.Descriptor {
	out := details
	if out.ID == "" {
		out.ID = ref.ID
	}
	if out.MimeType == "" {
		out.MimeType = ref.MimeType
	}
	if out.DownloadURL == "" {
		out.DownloadURL = ref.DownloadURL
	}
	if out.Name == "" {
		out.Name = ref.Name
	}
	if out.Name == "" {
		out.Name = out.ID
	}
	return out
}
