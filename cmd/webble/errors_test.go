package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/webble/bluetooth"
	"github.com/srg/webble/internal/config"
	"github.com/srg/webble/internal/luafilter"
	"github.com/srg/webble/internal/simpleble"
)

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "no adapters",
			err:  bluetooth.ErrNoAdapters,
			want: "no Bluetooth adapter found; make sure Bluetooth is enabled",
		},
		{
			name: "service lookup keeps its context",
			err:  fmt.Errorf("wrapped: %w", &bluetooth.NotFoundError{Resource: "characteristic", UUIDs: []string{"180d", "2a99"}}),
			want: `characteristic "2a99" not found in service "180d"`,
		},
		{
			name: "not connected",
			err:  fmt.Errorf("read: %w", bluetooth.ErrNotConnected),
			want: "device is not connected",
		},
		{
			name: "scan in progress",
			err:  bluetooth.ErrScanInProgress,
			want: "another scan is already running on this adapter",
		},
		{
			name: "library missing",
			err:  fmt.Errorf("%w: libsimpleble-c.so: no such file", simpleble.ErrLibraryNotFound),
			want: "simpleble: library not found: libsimpleble-c.so: no such file; set --library, library_path or WEBBLE_SIMPLEBLE_PATH",
		},
		{
			name: "timeout",
			err:  fmt.Errorf("connect: %w", context.DeadlineExceeded),
			want: "operation timed out",
		},
		{
			name: "lua",
			err:  &luafilter.ScriptError{Type: "syntax", Message: "unexpected symbol", Line: 2, Source: "f.lua"},
			want: "lua filter: " + (&luafilter.ScriptError{Type: "syntax", Message: "unexpected symbol", Line: 2, Source: "f.lua"}).Error(),
		},
		{
			name: "unknown errors pass through",
			err:  errors.New("boom"),
			want: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUserError(tt.err))
		})
	}
}

func TestConfigureLogger(t *testing.T) {
	newCmd := func(args ...string) *cobra.Command {
		cmd := &cobra.Command{}
		cmd.Flags().String("log-level", "", "")
		cmd.Flags().Bool("verbose", false, "")
		require.NoError(t, cmd.Flags().Parse(args))
		return cmd
	}
	cfg := config.Default()

	logger, err := configureLogger(newCmd(), cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Level(), logger.GetLevel(), "without flags the config level MUST apply")

	logger, err = configureLogger(newCmd("--verbose"), cfg)
	require.NoError(t, err)
	assert.Equal(t, "debug", logger.GetLevel().String())

	logger, err = configureLogger(newCmd("--verbose", "--log-level", "error"), cfg)
	require.NoError(t, err)
	assert.Equal(t, "error", logger.GetLevel().String(), "--log-level MUST take precedence over --verbose")

	_, err = configureLogger(newCmd("--log-level", "loud"), cfg)
	assert.ErrorContains(t, err, "invalid log level: loud")
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "v1.2.3", formatVersion("1.2.3"))
	assert.Equal(t, "dev", formatVersion("dev"))
}
