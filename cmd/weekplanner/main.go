package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/weekplanner/internal/ai"
	"github.com/nhle/weekplanner/internal/app"
	"github.com/nhle/weekplanner/internal/auth"
	"github.com/nhle/weekplanner/internal/credential"
	"github.com/nhle/weekplanner/internal/model"
	"github.com/nhle/weekplanner/internal/persist"
	appsync "github.com/nhle/weekplanner/internal/sync"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the config file")
	flag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating data directory: %v\n", err)
		os.Exit(1)
	}

	local, err := persist.NewLocal(filepath.Join(cfg.DataDir, "planner.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening local store: %v\n", err)
		os.Exit(1)
	}
	defer local.Close()

	authMgr, remote := buildBackend(cfg)
	gateway := persist.NewGateway(local, remote)

	// Resume the previous session before the first hydration so the
	// initial load comes from the cloud when possible.
	if authMgr.Configured() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		authMgr.Restore(ctx)
		cancel()
	}

	orch := appsync.New(gateway, authMgr)

	p := tea.NewProgram(
		app.New(gateway, authMgr, orch, buildSuggester(cfg)),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running planner: %v\n", err)
		os.Exit(1)
	}
}

// buildBackend wires the configured cloud store and its matching auth
// provider. With no backend configured the planner runs local-only.
func buildBackend(cfg *model.AppConfig) (*auth.Manager, persist.Backend) {
	creds := credential.Store{}

	switch cfg.Backend {
	case model.BackendSupabase:
		mgr := auth.NewManager(
			auth.NewSupabase(cfg.Supabase.URL, cfg.Supabase.AnonKey),
			creds,
			credential.KeyRefreshToken,
		)
		remote := persist.NewSupabase(cfg.Supabase.URL, cfg.Supabase.AnonKey, mgr.Token)
		return mgr, remote

	case model.BackendFirestore:
		mgr := auth.NewManager(
			auth.NewFirebase(cfg.Firestore.APIKey),
			creds,
			credential.KeyRefreshToken,
		)
		remote := persist.NewFirestore(cfg.Firestore.ProjectID, cfg.Firestore.APIKey, mgr.Token)
		return mgr, remote

	default:
		return auth.NewManager(nil, nil, ""), nil
	}
}

// buildSuggester creates the AI suggester. The API key comes from the
// environment or the system keyring; without one the suggester falls
// back to canned ideas.
func buildSuggester(cfg *model.AppConfig) *ai.Suggester {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		apiKey, _ = credential.Get(credential.KeyAIAPIKey)
	}
	return ai.New(apiKey, cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.MaxTokens)
}
