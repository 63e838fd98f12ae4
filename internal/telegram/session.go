package telegram

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// SessionFile is the persisted credential artifact produced by the one-time
// authorization step (cmd/authsetup). Unattended authentication requires it
// to be present and readable on disk.
type SessionFile struct {
	APIID        int       `json:"api_id"`
	Phone        string    `json:"phone"`
	Token        string    `json:"token"`
	AuthorizedAt time.Time `json:"authorized_at"`
}

// Token builds the platform credential from the account identifier and
// shared secret.
func Token(apiID int, apiHash string) string {
	return strconv.Itoa(apiID) + ":" + apiHash
}

// LoadSessionFile reads and validates the credential artifact at path.
func LoadSessionFile(path string) (*SessionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var s SessionFile
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	if s.Token == "" {
		return nil, fmt.Errorf("session file %s has no token", path)
	}
	return &s, nil
}

// Save writes the credential artifact to path, readable by the owner only.
func (s *SessionFile) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
