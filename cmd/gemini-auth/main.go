// Command gemini-auth manages the gateway's single on-disk OAuth
// credential: running the interactive authorization flow, inspecting the
// result, removing it, and exporting it for use elsewhere (spec.md 6,
// grounded on the original CLI's `auth add|list|remove|export` surface).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"gemini-gateway/internal/config"
	"gemini-gateway/internal/credential"
	"gemini-gateway/internal/oauth"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "gemini-auth: loading configuration:", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		err = cmdAdd(cfg)
	case "list":
		err = cmdList(cfg)
	case "remove":
		err = cmdRemove(cfg)
	case "export":
		err = cmdExport(cfg, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "gemini-auth:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: gemini-auth <command>

commands:
  add       run the interactive OAuth flow and save the resulting credential
  list      show the currently saved credential, if any
  remove    delete the saved credential file
  export    print a minimized credential (-format env|compose, -o FILE)`)
}

func cmdAdd(cfg *config.Config) error {
	mgr := oauth.NewManager(cfg.ClientID, cfg.ClientSecret, cfg.AuthURI, cfg.TokenURI, cfg.Scopes, cfg.OAuthCallbackPort, log.NewEntry(log.StandardLogger()))

	ctx, cancel := context.WithTimeout(context.Background(), 6*time.Minute)
	defer cancel()

	rec, err := mgr.RunInteractiveFlow(ctx)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	if email, err := fetchUserEmail(ctx, rec.AccessToken); err != nil {
		log.WithError(err).Warn("could not resolve account email; continuing without it")
	} else {
		rec.Email = email
	}

	store := credential.NewStore(cfg.CredentialFilePath, log.NewEntry(log.StandardLogger()))
	if err := store.SaveRefreshed(rec); err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}

	fmt.Printf("credential saved to %s", cfg.CredentialFilePath)
	if rec.Email != "" {
		fmt.Printf(" (%s)", rec.Email)
	}
	fmt.Println()
	return nil
}

func cmdList(cfg *config.Config) error {
	store := credential.NewStore(cfg.CredentialFilePath, log.NewEntry(log.StandardLogger()))
	rec, err := store.Load()
	if err != nil {
		fmt.Println("no credential saved")
		return nil
	}
	fmt.Printf("path:       %s\n", cfg.CredentialFilePath)
	if rec.Email != "" {
		fmt.Printf("email:      %s\n", rec.Email)
	}
	if rec.ProjectID != "" {
		fmt.Printf("project_id: %s\n", rec.ProjectID)
	}
	fmt.Printf("expired:    %v\n", rec.Expired())
	return nil
}

func cmdRemove(cfg *config.Config) error {
	if err := os.Remove(cfg.CredentialFilePath); err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no credential saved")
			return nil
		}
		return err
	}
	fmt.Println("credential removed")
	return nil
}

// cmdExport prints a minimized fragment of the saved credential — just the
// fields another process needs to exchange the refresh token itself
// (client_id, client_secret, refresh_token, token_uri) — as either a
// dotenv-style file (default) or a docker-compose "environment:" snippet
// (-format compose), per spec.md 6.
func cmdExport(cfg *config.Config, args []string) error {
	out := os.Stdout
	format := "env"
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-o":
			if i+1 >= len(args) {
				return fmt.Errorf("-o requires a file argument")
			}
			f, err := os.Create(args[i+1])
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
			i++
		case "-format":
			if i+1 >= len(args) {
				return fmt.Errorf("-format requires an argument (env|compose)")
			}
			format = args[i+1]
			i++
		}
	}

	store := credential.NewStore(cfg.CredentialFilePath, log.NewEntry(log.StandardLogger()))
	rec, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading credential: %w", err)
	}

	switch format {
	case "compose":
		fmt.Fprintln(out, "environment:")
		fmt.Fprintf(out, "  - GEMINI_OAUTH_CLIENT_ID=%s\n", rec.ClientID)
		fmt.Fprintf(out, "  - GEMINI_OAUTH_CLIENT_SECRET=%s\n", rec.ClientSecret)
		fmt.Fprintf(out, "  - GEMINI_OAUTH_REFRESH_TOKEN=%s\n", rec.RefreshToken)
		fmt.Fprintf(out, "  - GEMINI_OAUTH_TOKEN_URI=%s\n", rec.TokenURI)
	case "env":
		fmt.Fprintf(out, "GEMINI_OAUTH_CLIENT_ID=%s\n", rec.ClientID)
		fmt.Fprintf(out, "GEMINI_OAUTH_CLIENT_SECRET=%s\n", rec.ClientSecret)
		fmt.Fprintf(out, "GEMINI_OAUTH_REFRESH_TOKEN=%s\n", rec.RefreshToken)
		fmt.Fprintf(out, "GEMINI_OAUTH_TOKEN_URI=%s\n", rec.TokenURI)
	default:
		return fmt.Errorf("unknown export format %q (want env|compose)", format)
	}
	return nil
}

// fetchUserEmail calls Google's userinfo endpoint to label the saved
// credential with the account it belongs to.
func fetchUserEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("userinfo: status %d: %s", resp.StatusCode, string(body))
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	return info.Email, nil
}
