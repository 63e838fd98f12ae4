// Command authsetup performs the one-time interactive authorization and
// writes the session file the bot needs for unattended starts.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"autoforward_bot/internal/config"
	"autoforward_bot/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Telegram Autoforward Bot - authorization setup")
	fmt.Println("==============================================")
	fmt.Println()

	in := bufio.NewScanner(os.Stdin)

	apiID := promptAPIID(in)
	apiHash := prompt(in, "API hash", os.Getenv("TELEGRAM_API_HASH"))
	phone := prompt(in, "Phone number (with country code)", os.Getenv("TELEGRAM_PHONE"))

	token := telegram.Token(apiID, apiHash)

	fmt.Println()
	fmt.Println("Connecting to Telegram...")
	client, err := telegram.Dial(token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "authorization failed: %v\n", err)
		fmt.Fprintln(os.Stderr, "check the API ID and hash and try again")
		os.Exit(1)
	}
	client.Close()

	sessionFile := os.Getenv("SESSION_FILE")
	if sessionFile == "" {
		sessionFile = config.DefaultSessionFile
	}

	sess := &telegram.SessionFile{
		APIID:        apiID,
		Phone:        phone,
		Token:        token,
		AuthorizedAt: time.Now().UTC(),
	}
	if err := sess.Save(sessionFile); err != nil {
		fmt.Fprintf(os.Stderr, "save session: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Session saved to %s\n", sessionFile)

	if err := writeStarterEnv(apiID, apiHash, phone); err != nil {
		fmt.Fprintf(os.Stderr, "write .env: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Done. Set SOURCE_CHAT and DESTINATION_CHAT in .env, then run the bot.")
}

func promptAPIID(in *bufio.Scanner) int {
	def := os.Getenv("TELEGRAM_API_ID")
	for {
		raw := prompt(in, "API ID", def)
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			fmt.Println("API ID must be a positive number")
			continue
		}
		return id
	}
}

func prompt(in *bufio.Scanner, label, def string) string {
	for {
		if def != "" {
			fmt.Printf("%s [%s]: ", label, def)
		} else {
			fmt.Printf("%s: ", label)
		}
		if !in.Scan() {
			fmt.Fprintln(os.Stderr, "\naborted")
			os.Exit(1)
		}
		v := strings.TrimSpace(in.Text())
		if v == "" {
			v = def
		}
		if v != "" {
			return v
		}
		fmt.Printf("%s is required\n", label)
	}
}

// writeStarterEnv creates a starter .env with the credentials filled in.
// An existing file is left untouched.
func writeStarterEnv(apiID int, apiHash, phone string) error {
	if _, err := os.Stat(".env"); err == nil {
		fmt.Println(".env already exists, not overwriting")
		return nil
	}

	content := fmt.Sprintf(`TELEGRAM_API_ID=%d
TELEGRAM_API_HASH=%s
TELEGRAM_PHONE=%s

# Chat references: numeric ID or @username
SOURCE_CHAT=
DESTINATION_CHAT=

# Comma-separated; empty forwards everything
KEYWORDS=
FORWARD_MEDIA=true
DELAY_SECONDS=2

DATABASE_PATH=%s
SESSION_FILE=%s
LISTEN_ADDR=%s
LOG_LEVEL=info
`, apiID, apiHash, phone, config.DefaultDatabasePath, config.DefaultSessionFile, config.DefaultListenAddr)

	if err := os.WriteFile(".env", []byte(content), 0o600); err != nil {
		return err
	}
	fmt.Println("Starter .env written")
	return nil
}
