package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConfigurationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ConfigurationError
		want string
	}{
		{
			name: "no keys",
			err:  NewConfigurationError("Slack client-id is not set as an environment variable"),
			want: "Slack client-id is not set as an environment variable",
		},
		{
			name: "with keys",
			err:  NewConfigurationError("could not gather config", "SLACK_CLIENT_ID", "SLACK_CLIENT_SECRET"),
			want: "could not gather config (missing: SLACK_CLIENT_ID, SLACK_CLIENT_SECRET)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("ConfigurationError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsConfiguration(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantConfig   bool
		wantUpstream bool
	}{
		{name: "configuration", err: NewConfigurationError("oh no!"), wantConfig: true},
		{name: "wrapped", err: fmt.Errorf("startup: %w", NewConfigurationError("oh no!")), wantConfig: true},
		{name: "coded", err: NewAdapterError("oh no!", Configuration, nil), wantConfig: true},
		{name: "upstream", err: NewUpstreamError("oh no!", errors.New("boom")), wantUpstream: true},
		{name: "wrapped upstream", err: fmt.Errorf("issue: %w", NewUpstreamError("oh no!", nil)), wantUpstream: true},
		{name: "plain", err: errors.New("oh no!")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConfiguration(tt.err); got != tt.wantConfig {
				t.Errorf("IsConfiguration() = %v, want %v", got, tt.wantConfig)
			}
			if got := IsUpstream(tt.err); got != tt.wantUpstream {
				t.Errorf("IsUpstream() = %v, want %v", got, tt.wantUpstream)
			}
		})
	}
}

func TestAdapterError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := NewUpstreamError("could not save installation", inner)
	if !errors.Is(err, inner) {
		t.Errorf("AdapterError.Unwrap() = %v, want %v", err.Unwrap(), inner)
	}
	if got, want := err.Error(), "could not save installation: boom"; got != want {
		t.Errorf("AdapterError.Error() = %v, want %v", got, want)
	}
}

func TestAdapterError_Status(t *testing.T) {
	if got := NewUpstreamError("x", nil).Status(); got != http.StatusServiceUnavailable {
		t.Errorf("upstream status = %d", got)
	}
	if got := NewAdapterError("x", Configuration, nil).Status(); got != http.StatusInternalServerError {
		t.Errorf("configuration status = %d", got)
	}
}
