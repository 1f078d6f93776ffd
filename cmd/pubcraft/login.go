package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/config"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/github"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/kvstore"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/oauth"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/session"
)

// Authorization endpoints and loopback defaults.
const (
	githubAuthorizeURL = "https://github.com/login/oauth/authorize"
	orcidAuthorizeURL  = "https://orcid.org/oauth/authorize"

	defaultCallbackPort = 8817
	callbackPath        = "/callback"
	loginTimeout        = 5 * time.Minute
)

var logoutGitHub bool

func init() {
	// Load .env if present (for client IDs and secrets)
	_ = godotenv.Load()

	logoutCmd.Flags().BoolVar(&logoutGitHub, "github", false, "Also remove the GitHub account link")

	loginCmd.AddCommand(loginORCIDCmd)
	loginCmd.AddCommand(loginGitHubCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with ORCID or link a GitHub account",
}

// callbackPort returns the configured loopback port.
func callbackPort() int {
	cfg, _ := config.LoadGlobalConfig()
	if cfg.CallbackPort != 0 {
		return cfg.CallbackPort
	}
	return defaultCallbackPort
}

// redirectURI builds the loopback redirect URI for a port.
func redirectURI(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", port, callbackPath)
}

// waitForCallback serves one OAuth redirect on the loopback interface and
// returns its query parameters.
func waitForCallback(ctx context.Context, port int) (oauth.CallbackParams, error) {
	var params oauth.CallbackParams
	done := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params = oauth.CallbackParams{
			Code:  q.Get("code"),
			State: q.Get("state"),
			Error: q.Get("error"),
		}
		fmt.Fprintln(w, "Login complete. You can close this window and return to the terminal.")
		close(done)
	})

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return params, fmt.Errorf("listening on callback port %d: %w", port, err)
	}
	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	defer srv.Shutdown(context.Background())

	select {
	case <-done:
		return params, nil
	case <-ctx.Done():
		return params, fmt.Errorf("login timed out waiting for callback")
	}
}

var loginORCIDCmd = &cobra.Command{
	Use:   "orcid",
	Short: "Log in with ORCID",
	Long: `Log in with ORCID using the authorization code flow with PKCE.

Opens a loopback callback server, prints the authorization URL, and waits
for the redirect. Requires orcid_client_id in the global config or
ORCID_CLIENT_ID in the environment.`,
	Args: cobra.NoArgs,
	RunE: runLoginORCID,
}

func runLoginORCID(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	kv := mustOpenStore(root)
	defer kv.Close()

	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	clientID := envOr("ORCID_CLIENT_ID", cfg.ORCIDClientID)
	if clientID == "" {
		exitWithError(ExitConfigError, "orcid_client_id not configured (set it in %s)", config.GlobalConfigPath())
	}

	state, verifier, err := oauth.BeginORCID(kv)
	if err != nil {
		exitWithError(ExitError, "starting login: %v", err)
	}

	port := callbackPort()
	authURL := orcidAuthorizeURL + "?" + url.Values{
		"client_id":             {clientID},
		"response_type":         {"code"},
		"scope":                 {"/authenticate"},
		"redirect_uri":          {redirectURI(port)},
		"state":                 {state},
		"code_challenge":        {oauth.ChallengeS256(verifier)},
		"code_challenge_method": {"S256"},
	}.Encode()

	outputHuman("Open this URL in your browser to log in:\n\n  %s\n\nWaiting for the redirect...\n", authURL)

	ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
	defer cancel()
	params, err := waitForCallback(ctx, port)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	outcome, err := completeCallback(ctx, kv, cfg, port, params)
	if err != nil {
		exitWithError(ExitAuthError, "%v", err)
	}
	if outcome.Provider != oauth.ProviderORCID {
		exitWithError(ExitAuthError, "callback completed a %s flow, expected orcid", outcome.Provider)
	}

	mgr := session.NewManager(kv)
	sess, err := mgr.Login(session.User{
		ID:          outcome.Identity.ID,
		Name:        outcome.Identity.Name,
		ORCID:       outcome.Identity.ORCID,
		Email:       outcome.Identity.Email,
		AccessToken: outcome.Identity.AccessToken,
	})
	if err != nil {
		exitWithError(ExitError, "saving session: %v", err)
	}

	if humanOutput {
		outputHuman("Logged in as %s (%s)\n", sess.User.Name, sess.User.ORCID)
		return nil
	}
	return outputJSON(sess.User)
}

var loginGitHubCmd = &cobra.Command{
	Use:   "github",
	Short: "Link a GitHub account",
	Long: `Link a GitHub account via the authorization code flow.

The link is stored independently of the ORCID session and survives an ORCID
logout. Requires github_client_id and github_client_secret in the global
config or GITHUB_CLIENT_ID / GITHUB_CLIENT_SECRET in the environment.`,
	Args: cobra.NoArgs,
	RunE: runLoginGitHub,
}

func runLoginGitHub(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	kv := mustOpenStore(root)
	defer kv.Close()

	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	clientID := envOr("GITHUB_CLIENT_ID", cfg.GitHubClientID)
	if clientID == "" {
		exitWithError(ExitConfigError, "github_client_id not configured (set it in %s)", config.GlobalConfigPath())
	}

	state, err := oauth.BeginGitHub(kv)
	if err != nil {
		exitWithError(ExitError, "starting login: %v", err)
	}

	port := callbackPort()
	authURL := githubAuthorizeURL + "?" + url.Values{
		"client_id":    {clientID},
		"redirect_uri": {redirectURI(port)},
		"scope":        {"repo"},
		"state":        {state},
	}.Encode()

	outputHuman("Open this URL in your browser to link GitHub:\n\n  %s\n\nWaiting for the redirect...\n", authURL)

	ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
	defer cancel()
	params, err := waitForCallback(ctx, port)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	outcome, err := completeCallback(ctx, kv, cfg, port, params)
	if err != nil {
		exitWithError(ExitAuthError, "%v", err)
	}
	if outcome.Provider != oauth.ProviderGitHub {
		exitWithError(ExitAuthError, "callback completed a %s flow, expected github", outcome.Provider)
	}

	gh := github.NewClient(github.WithToken(outcome.GitHubToken))
	user, err := gh.AuthenticatedUser(ctx)
	if err != nil {
		exitWithError(ExitError, "verifying token: %v", err)
	}

	mgr := session.NewManager(kv)
	if err := mgr.LinkGitHub(user.Login, outcome.GitHubToken); err != nil {
		exitWithError(ExitError, "saving link: %v", err)
	}

	if humanOutput {
		outputHuman("Linked GitHub account %s\n", user.Login)
		return nil
	}
	return outputJSON(map[string]string{"github": user.Login})
}

// completeCallback hands the callback to the dual-nonce handler with a live
// code exchanger.
func completeCallback(ctx context.Context, kv *kvstore.Store, cfg *config.GlobalConfig, port int, params oauth.CallbackParams) (*oauth.Outcome, error) {
	ex := oauth.NewHTTPExchanger(oauth.ExchangerConfig{
		ORCIDClientID:      envOr("ORCID_CLIENT_ID", cfg.ORCIDClientID),
		GitHubClientID:     envOr("GITHUB_CLIENT_ID", cfg.GitHubClientID),
		GitHubClientSecret: envOr("GITHUB_CLIENT_SECRET", cfg.GitHubClientSecret),
		RedirectURI:        redirectURI(port),
	})
	return oauth.HandleCallback(ctx, kv, ex, params)
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out of ORCID",
	Long: `Remove the ORCID session. The GitHub account link is kept unless
--github is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := mustFindWorkspace()
		kv := mustOpenStore(root)
		defer kv.Close()

		mgr := session.NewManager(kv)
		if err := mgr.Logout(); err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if logoutGitHub {
			if err := mgr.UnlinkGitHub(); err != nil {
				exitWithError(ExitError, "%v", err)
			}
		}

		if humanOutput {
			outputHuman("Logged out\n")
			return nil
		}
		return outputJSON(StatusResponse{Status: "logged out"})
	},
}

// WhoamiResponse reports auth state for both providers.
type WhoamiResponse struct {
	LoggedIn bool   `json:"loggedIn"`
	Name     string `json:"name,omitempty"`
	ORCID    string `json:"orcid,omitempty"`
	GitHub   string `json:"github,omitempty"`
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current ORCID session and GitHub link",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := mustFindWorkspace()
		kv := mustOpenStore(root)
		defer kv.Close()

		mgr := session.NewManager(kv)
		resp := WhoamiResponse{}

		sess, err := mgr.Current()
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if sess != nil {
			resp.LoggedIn = true
			resp.Name = sess.User.Name
			resp.ORCID = sess.User.ORCID
			if err := mgr.Touch(); err != nil {
				exitWithError(ExitError, "%v", err)
			}
		}
		if link, err := mgr.GitHub(); err == nil && link != nil {
			resp.GitHub = link.Username
		}

		if humanOutput {
			if !resp.LoggedIn {
				outputHuman("Not logged in\n")
			} else {
				outputHuman("%s (%s)\n", resp.Name, resp.ORCID)
			}
			if resp.GitHub != "" {
				outputHuman("GitHub: %s\n", resp.GitHub)
			}
			return nil
		}
		return outputJSON(resp)
	},
}

// envOr returns the environment value for key, falling back to configValue.
func envOr(key, configValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return configValue
}
