package slack

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

type RunOptions struct {
	BotToken          string `validate:"required"`
	AppToken          string `validate:"required"`
	BaseURL           string `validate:"omitempty,url"`
	AllowedTeamIDs    []string
	AllowedChannelIDs []string
	MaxConcurrency    int           `validate:"gte=1,lte=256"`
	RequestTimeout    time.Duration `validate:"gt=0"`
	HealthListen      string
	RepliesPath       string
	Files             FileOptions
	Notify            NotifyOptions
	Hooks             Hooks `validate:"-"`
}

type FileOptions struct {
	Backend        string `validate:"oneof=local s3"`
	Dir            string
	MaxBytes       int64 `validate:"gte=1"`
	SniffContent   bool
	S3Bucket       string `validate:"required_if=Backend s3"`
	S3Prefix       string
	S3Region       string
	S3Endpoint     string `validate:"omitempty,url"`
	S3UsePathStyle bool
}

type NotifyOptions struct {
	AMQPURL  string `validate:"omitempty,url"`
	Exchange string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// resolveRunOptions trims and defaults opts, then validates the result.
func resolveRunOptions(opts RunOptions) (RunOptions, error) {
	opts = normalizeRunOptions(opts)
	if err := validate.Struct(opts); err != nil {
		return RunOptions{}, fmt.Errorf("invalid slack options: %w", err)
	}
	return opts, nil
}

func normalizeRunOptions(opts RunOptions) RunOptions {
	opts.BotToken = strings.TrimSpace(opts.BotToken)
	opts.AppToken = strings.TrimSpace(opts.AppToken)
	opts.BaseURL = strings.TrimSpace(opts.BaseURL)
	opts.AllowedTeamIDs = normalizeRunStringSlice(opts.AllowedTeamIDs)
	opts.AllowedChannelIDs = normalizeRunStringSlice(opts.AllowedChannelIDs)
	opts.HealthListen = strings.TrimSpace(opts.HealthListen)
	opts.RepliesPath = strings.TrimSpace(opts.RepliesPath)

	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 3
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	opts.Files.Backend = strings.ToLower(strings.TrimSpace(opts.Files.Backend))
	if opts.Files.Backend == "" {
		opts.Files.Backend = BackendLocal
	}
	opts.Files.Dir = strings.TrimSpace(opts.Files.Dir)
	if opts.Files.Dir == "" {
		opts.Files.Dir = "uploads"
	}
	if opts.Files.MaxBytes <= 0 {
		opts.Files.MaxBytes = 50 * 1024 * 1024
	}
	opts.Files.S3Bucket = strings.TrimSpace(opts.Files.S3Bucket)
	opts.Files.S3Prefix = strings.TrimSpace(opts.Files.S3Prefix)
	opts.Files.S3Region = strings.TrimSpace(opts.Files.S3Region)
	opts.Files.S3Endpoint = strings.TrimSpace(opts.Files.S3Endpoint)

	opts.Notify.AMQPURL = strings.TrimSpace(opts.Notify.AMQPURL)
	opts.Notify.Exchange = strings.TrimSpace(opts.Notify.Exchange)
	return opts
}

func normalizeRunStringSlice(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func toAllowlist(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			out[id] = true
		}
	}
	return out
}
