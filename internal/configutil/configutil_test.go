package configutil

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("name", "flag-default", "")
	cmd.Flags().Int("count", 1, "")
	cmd.Flags().Bool("on", false, "")
	cmd.Flags().Int64("size", 10, "")
	cmd.Flags().Duration("wait", time.Second, "")
	cmd.Flags().StringArray("id", nil, "")
	return cmd
}

func TestFlagOrViperPrecedence(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := newTestCmd()
	if got := FlagOrViperString(cmd, "name", "app.name"); got != "flag-default" {
		t.Fatalf("unset = %q, want flag default", got)
	}

	viper.Set("app.name", "from-viper")
	viper.Set("app.count", 7)
	viper.Set("app.on", true)
	viper.Set("app.size", int64(99))
	viper.Set("app.wait", "3s")
	viper.Set("app.ids", []string{"A", "B"})
	if got := FlagOrViperString(cmd, "name", "app.name"); got != "from-viper" {
		t.Fatalf("viper string = %q", got)
	}
	if got := FlagOrViperInt(cmd, "count", "app.count"); got != 7 {
		t.Fatalf("viper int = %d", got)
	}
	if got := FlagOrViperBool(cmd, "on", "app.on"); !got {
		t.Fatalf("viper bool = %v", got)
	}
	if got := FlagOrViperInt64(cmd, "size", "app.size"); got != 99 {
		t.Fatalf("viper int64 = %d", got)
	}
	if got := FlagOrViperDuration(cmd, "wait", "app.wait"); got != 3*time.Second {
		t.Fatalf("viper duration = %v", got)
	}
	if got := FlagOrViperStringArray(cmd, "id", "app.ids"); len(got) != 2 || got[1] != "B" {
		t.Fatalf("viper string array = %v", got)
	}

	if err := cmd.Flags().Set("name", "from-flag"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("id", "C"); err != nil {
		t.Fatal(err)
	}
	if got := FlagOrViperString(cmd, "name", "app.name"); got != "from-flag" {
		t.Fatalf("flag string = %q", got)
	}
	if got := FlagOrViperStringArray(cmd, "id", "app.ids"); len(got) != 1 || got[0] != "C" {
		t.Fatalf("flag string array = %v", got)
	}
}

func TestFlagOrViperEmptyKey(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("", "ignored")

	cmd := newTestCmd()
	if got := FlagOrViperInt(cmd, "count", ""); got != 1 {
		t.Fatalf("empty key int = %d, want flag default", got)
	}
}
