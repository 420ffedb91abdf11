package slackclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// FileInfo is the subset of a Slack file object the bot uses.
type FileInfo struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Title              string `json:"title,omitempty"`
	MimeType           string `json:"mimetype"`
	FileType           string `json:"filetype,omitempty"`
	Size               int64  `json:"size,omitempty"`
	URLPrivate         string `json:"url_private,omitempty"`
	URLPrivateDownload string `json:"url_private_download"`
}

type filesInfoResponse struct {
	apiError
	File FileInfo `json:"file"`
}

// FilesInfo looks up full metadata for a file id.
func (c *Client) FilesInfo(ctx context.Context, fileID string) (FileInfo, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return FileInfo{}, fmt.Errorf("file id is required")
	}
	body, status, _, err := c.getAuth(ctx, c.botTokenOrEmpty(), "files.info", url.Values{"file": []string{fileID}})
	if err != nil {
		return FileInfo{}, err
	}
	if status < 200 || status >= 300 {
		return FileInfo{}, fmt.Errorf("slack files.info http %d", status)
	}
	var out filesInfoResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return FileInfo{}, err
	}
	if err := out.err("files.info"); err != nil {
		return FileInfo{}, err
	}
	if strings.TrimSpace(out.File.ID) == "" {
		out.File.ID = fileID
	}
	return out.File, nil
}
