// Package retriever turns file references carried by events into descriptors
// and fetches their content with the bot credential.
package retriever

import (
	"context"
	"mime"
	"strings"

	"github.com/lucaspatel/kl-slack/internal/events"
	"github.com/lucaspatel/kl-slack/internal/slackclient"
)

const AllowedMimeType = "application/pdf"

// Descriptor is normalized metadata about a remote file. DownloadURL is only
// usable while the bot token that produced it is valid.
type Descriptor struct {
	ID          string
	MimeType    string
	DownloadURL string
	Name        string
}

// Resolve extracts the file reference from a file-share event. The first entry
// of "files" wins; the singular "file" field is the fallback.
func Resolve(ev events.Event) (Descriptor, error) {
	raw := ev.Raw
	if files, ok := raw["files"].([]any); ok && len(files) > 0 {
		if ref, ok := files[0].(map[string]any); ok {
			if d := descriptorFromRef(ref); d.ID != "" {
				return d, nil
			}
		}
	}
	if ref, ok := raw["file"].(map[string]any); ok {
		if d := descriptorFromRef(ref); d.ID != "" {
			return d, nil
		}
	}
	return Descriptor{}, ErrNoFileReference
}

func descriptorFromRef(ref map[string]any) Descriptor {
	return Descriptor{
		ID:          events.String(ref, "id"),
		MimeType:    events.String(ref, "mimetype"),
		DownloadURL: events.String(ref, "url_private_download"),
		Name:        events.String(ref, "name"),
	}
}

// DetailsClient is the platform lookup used by FetchDetails.
type DetailsClient interface {
	FilesInfo(ctx context.Context, fileID string) (slackclient.FileInfo, error)
}

// FetchDetails resolves full metadata for id. Failures come back as
// *FetchError so callers can treat them like a failed download.
func FetchDetails(ctx context.Context, client DetailsClient, id string) (Descriptor, error) {
	if client == nil {
		return Descriptor{}, &FetchError{Op: "files.info", Err: errNoClient}
	}
	info, err := client.FilesInfo(ctx, id)
	if err != nil {
		return Descriptor{}, &FetchError{Op: "files.info", Err: err}
	}
	return Descriptor{
		ID:          firstNonEmpty(info.ID, id),
		MimeType:    strings.TrimSpace(info.MimeType),
		DownloadURL: strings.TrimSpace(info.URLPrivateDownload),
		Name:        strings.TrimSpace(info.Name),
	}, nil
}

// IsAllowedMimeType reports whether mt is application/pdf, ignoring case and
// parameters.
func IsAllowedMimeType(mt string) bool {
	mt = strings.TrimSpace(mt)
	if mt == "" {
		return false
	}
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	return strings.EqualFold(mt, AllowedMimeType)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
