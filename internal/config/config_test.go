package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

var allVars = []string{
	"TELEGRAM_API_ID", "TELEGRAM_API_HASH", "TELEGRAM_PHONE",
	"SOURCE_CHAT", "DESTINATION_CHAT", "KEYWORDS", "FORWARD_MEDIA",
	"DELAY_SECONDS", "DATABASE_PATH", "SESSION_FILE", "LISTEN_ADDR", "LOG_LEVEL",
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name: "empty environment applies defaults",
			env:  map[string]string{},
			want: &Config{
				ForwardMedia: true,
				DelaySeconds: 2,
				DatabasePath: "./data/bot.db",
				SessionFile:  "./telegram_session.json",
				ListenAddr:   ":5000",
				LogLevel:     "info",
			},
		},
		{
			name: "all values set",
			env: map[string]string{
				"TELEGRAM_API_ID":   "123456",
				"TELEGRAM_API_HASH": "abcdef",
				"TELEGRAM_PHONE":    "+15550100",
				"SOURCE_CHAT":       "@source",
				"DESTINATION_CHAT":  "@dest",
				"KEYWORDS":          "sale, discount ,promo",
				"FORWARD_MEDIA":     "false",
				"DELAY_SECONDS":     "5",
				"DATABASE_PATH":     "/tmp/bot.db",
				"SESSION_FILE":      "/tmp/session.json",
				"LISTEN_ADDR":       ":8080",
				"LOG_LEVEL":         "debug",
			},
			want: &Config{
				APIID:           123456,
				APIHash:         "abcdef",
				Phone:           "+15550100",
				SourceChat:      "@source",
				DestinationChat: "@dest",
				Keywords:        []string{"sale", "discount", "promo"},
				ForwardMedia:    false,
				DelaySeconds:    5,
				DatabasePath:    "/tmp/bot.db",
				SessionFile:     "/tmp/session.json",
				ListenAddr:      ":8080",
				LogLevel:        "debug",
			},
		},
		{
			name: "non-numeric delay coerced to default",
			env:  map[string]string{"DELAY_SECONDS": "soon"},
			want: &Config{
				ForwardMedia: true,
				DelaySeconds: 2,
				DatabasePath: "./data/bot.db",
				SessionFile:  "./telegram_session.json",
				ListenAddr:   ":5000",
				LogLevel:     "info",
			},
		},
		{
			name: "negative delay coerced to default",
			env:  map[string]string{"DELAY_SECONDS": "-3"},
			want: &Config{
				ForwardMedia: true,
				DelaySeconds: 2,
				DatabasePath: "./data/bot.db",
				SessionFile:  "./telegram_session.json",
				ListenAddr:   ":5000",
				LogLevel:     "info",
			},
		},
		{
			name: "forward media case insensitive",
			env:  map[string]string{"FORWARD_MEDIA": "TRUE"},
			want: &Config{
				ForwardMedia: true,
				DelaySeconds: 2,
				DatabasePath: "./data/bot.db",
				SessionFile:  "./telegram_session.json",
				ListenAddr:   ":5000",
				LogLevel:     "info",
			},
		},
		{
			name: "forward media garbage means false",
			env:  map[string]string{"FORWARD_MEDIA": "yes"},
			want: &Config{
				ForwardMedia: false,
				DelaySeconds: 2,
				DatabasePath: "./data/bot.db",
				SessionFile:  "./telegram_session.json",
				ListenAddr:   ":5000",
				LogLevel:     "info",
			},
		},
		{
			name:    "invalid api id",
			env:     map[string]string{"TELEGRAM_API_ID": "abc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range allVars {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseKeywords(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "single", raw: "sale", want: []string{"sale"}},
		{name: "spaces and empties", raw: " sale , ,discount,", want: []string{"sale", "discount"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseKeywords(tt.raw)); diff != "" {
				t.Errorf("ParseKeywords(%q) mismatch (-want +got):\n%s", tt.raw, diff)
			}
		})
	}
}

func TestMissingForStart(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{
			name: "nothing set",
			cfg:  Config{},
			want: []string{
				"TELEGRAM_API_ID", "TELEGRAM_API_HASH", "TELEGRAM_PHONE",
				"SOURCE_CHAT", "DESTINATION_CHAT",
			},
		},
		{
			name: "complete",
			cfg: Config{
				APIID: 1, APIHash: "h", Phone: "+1",
				SourceChat: "@a", DestinationChat: "@b",
			},
			want: nil,
		},
		{
			name: "chats missing",
			cfg:  Config{APIID: 1, APIHash: "h", Phone: "+1"},
			want: []string{"SOURCE_CHAT", "DESTINATION_CHAT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.cfg.MissingForStart()); diff != "" {
				t.Errorf("MissingForStart() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
