package slack

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lucaspatel/kl-slack/internal/filestore"
	"github.com/lucaspatel/kl-slack/internal/notify"
)

type Dependencies struct {
	Logger func() (*slog.Logger, error)
	// Store and Notifier override the backends chosen from RunOptions.
	Store    func(ctx context.Context) (filestore.Store, error)
	Notifier func(ctx context.Context, logger *slog.Logger) (notify.Publisher, error)
}

func loggerFromDeps(d Dependencies) (*slog.Logger, error) {
	if d.Logger == nil {
		return nil, fmt.Errorf("Logger dependency missing")
	}
	return d.Logger()
}

func storeFromDeps(ctx context.Context, d Dependencies, opts FileOptions) (filestore.Store, error) {
	if d.Store != nil {
		return d.Store(ctx)
	}
	switch opts.Backend {
	case BackendS3:
		cfg := filestore.S3Config{
			Bucket:       opts.S3Bucket,
			Prefix:       opts.S3Prefix,
			Region:       opts.S3Region,
			Endpoint:     opts.S3Endpoint,
			UsePathStyle: opts.S3UsePathStyle,
		}
		client, err := filestore.NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return filestore.NewS3(client, cfg)
	default:
		return filestore.NewLocal(opts.Dir, filestore.LocalOptions{}), nil
	}
}

func notifierFromDeps(ctx context.Context, d Dependencies, logger *slog.Logger, opts NotifyOptions) (notify.Publisher, error) {
	if d.Notifier != nil {
		return d.Notifier(ctx, logger)
	}
	if opts.AMQPURL == "" {
		return notify.Noop{}, nil
	}
	return notify.DialAMQP(opts.AMQPURL, opts.Exchange, logger)
}
