package main

import (
	"fmt"
	"log/slog"
	"strings"

	slackruntime "github.com/lucaspatel/kl-slack/internal/channelruntime/slack"
	"github.com/lucaspatel/kl-slack/internal/configutil"
	"github.com/lucaspatel/kl-slack/internal/logutil"
	"github.com/spf13/cobra"
)

func newSlackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slack",
		Short: "Run the bot with Socket Mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := runOptionsFromCommand(cmd)
			if err != nil {
				return err
			}
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return slackruntime.Run(cmd.Context(), slackruntime.Dependencies{
				Logger: func() (*slog.Logger, error) { return logger, nil },
			}, opts)
		},
	}

	cmd.Flags().String("slack-bot-token", "", "Slack bot token (xoxb-...).")
	cmd.Flags().String("slack-app-token", "", "Slack app-level token for Socket Mode (xapp-...).")
	cmd.Flags().String("slack-base-url", "https://slack.com/api", "Slack Web API base URL.")
	cmd.Flags().StringArray("slack-allowed-team-id", nil, "Allowed Slack team id(s). If empty, defaults to the bot's home team.")
	cmd.Flags().StringArray("slack-allowed-channel-id", nil, "Allowed Slack channel id(s). If empty, allows all channels in allowed teams.")
	cmd.Flags().Int("slack-max-concurrency", 3, "Max number of events handled concurrently.")
	cmd.Flags().Duration("slack-request-timeout", 0, "Timeout for each Slack API call and file download (0 uses slack.request_timeout).")
	cmd.Flags().String("files-backend", "local", "Where shared PDFs are stored: local|s3.")
	cmd.Flags().String("files-dir", "uploads", "Directory for stored PDFs (local backend).")
	cmd.Flags().Int64("files-max-bytes", 50*1024*1024, "Largest file that will be downloaded.")
	cmd.Flags().Bool("files-sniff-content", false, "Reject downloads whose content is not a PDF.")
	cmd.Flags().String("files-s3-bucket", "", "S3 bucket (s3 backend).")
	cmd.Flags().String("files-s3-prefix", "uploads", "S3 key prefix (s3 backend).")
	cmd.Flags().String("files-s3-region", "", "S3 region (defaults to the AWS config chain).")
	cmd.Flags().String("files-s3-endpoint", "", "Custom S3 endpoint, e.g. for MinIO.")
	cmd.Flags().Bool("files-s3-path-style", false, "Use path-style S3 addressing.")
	cmd.Flags().String("replies-file", "", "YAML file overriding reply texts.")
	cmd.Flags().String("health-listen", "", "Health and metrics listen address (e.g. 127.0.0.1:8080). Empty disables it.")
	cmd.Flags().String("notify-amqp-url", "", "AMQP URL for file.stored notifications. Empty disables them.")
	cmd.Flags().String("notify-exchange", "kl_slack.events", "AMQP topic exchange for notifications.")

	return cmd
}

func runOptionsFromCommand(cmd *cobra.Command) (slackruntime.RunOptions, error) {
	botToken := strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-bot-token", "slack.bot_token"))
	if botToken == "" {
		return slackruntime.RunOptions{}, fmt.Errorf("missing slack.bot_token (set via --slack-bot-token, KL_SLACK_SLACK_BOT_TOKEN or SLACK_BOT_TOKEN)")
	}
	appToken := strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-app-token", "slack.app_token"))
	if appToken == "" {
		return slackruntime.RunOptions{}, fmt.Errorf("missing slack.app_token (set via --slack-app-token, KL_SLACK_SLACK_APP_TOKEN or SLACK_APP_TOKEN)")
	}

	return slackruntime.RunOptions{
		BotToken:          botToken,
		AppToken:          appToken,
		BaseURL:           configutil.FlagOrViperString(cmd, "slack-base-url", "slack.base_url"),
		AllowedTeamIDs:    configutil.FlagOrViperStringArray(cmd, "slack-allowed-team-id", "slack.allowed_team_ids"),
		AllowedChannelIDs: configutil.FlagOrViperStringArray(cmd, "slack-allowed-channel-id", "slack.allowed_channel_ids"),
		MaxConcurrency:    configutil.FlagOrViperInt(cmd, "slack-max-concurrency", "slack.max_concurrency"),
		RequestTimeout:    configutil.FlagOrViperDuration(cmd, "slack-request-timeout", "slack.request_timeout"),
		HealthListen:      configutil.FlagOrViperString(cmd, "health-listen", "health.listen"),
		RepliesPath:       configutil.FlagOrViperString(cmd, "replies-file", "replies.file"),
		Files: slackruntime.FileOptions{
			Backend:        configutil.FlagOrViperString(cmd, "files-backend", "files.backend"),
			Dir:            configutil.FlagOrViperString(cmd, "files-dir", "files.dir"),
			MaxBytes:       configutil.FlagOrViperInt64(cmd, "files-max-bytes", "files.max_bytes"),
			SniffContent:   configutil.FlagOrViperBool(cmd, "files-sniff-content", "files.sniff_content"),
			S3Bucket:       configutil.FlagOrViperString(cmd, "files-s3-bucket", "files.s3.bucket"),
			S3Prefix:       configutil.FlagOrViperString(cmd, "files-s3-prefix", "files.s3.prefix"),
			S3Region:       configutil.FlagOrViperString(cmd, "files-s3-region", "files.s3.region"),
			S3Endpoint:     configutil.FlagOrViperString(cmd, "files-s3-endpoint", "files.s3.endpoint"),
			S3UsePathStyle: configutil.FlagOrViperBool(cmd, "files-s3-path-style", "files.s3.path_style"),
		},
		Notify: slackruntime.NotifyOptions{
			AMQPURL:  configutil.FlagOrViperString(cmd, "notify-amqp-url", "notify.amqp_url"),
			Exchange: configutil.FlagOrViperString(cmd, "notify-exchange", "notify.exchange"),
		},
	}, nil
}
