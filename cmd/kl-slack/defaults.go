package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Slack
	viper.SetDefault("slack.base_url", "https://slack.com/api")
	viper.SetDefault("slack.max_concurrency", 3)
	viper.SetDefault("slack.request_timeout", 30*time.Second)
	viper.SetDefault("slack.allowed_team_ids", []string{})
	viper.SetDefault("slack.allowed_channel_ids", []string{})

	// Files
	viper.SetDefault("files.backend", "local")
	viper.SetDefault("files.dir", "uploads")
	viper.SetDefault("files.max_bytes", int64(50*1024*1024))
	viper.SetDefault("files.sniff_content", false)
	viper.SetDefault("files.s3.prefix", "uploads")
	viper.SetDefault("files.s3.path_style", false)

	viper.SetDefault("replies.file", "")
	viper.SetDefault("health.listen", "")
	viper.SetDefault("notify.amqp_url", "")
	viper.SetDefault("notify.exchange", "kl_slack.events")
}
