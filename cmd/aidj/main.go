// Command aidj is the main entry point for the autonomous AI DJ broadcaster.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/airwavefm/aidj/internal/app"
	"github.com/airwavefm/aidj/internal/config"
	"github.com/airwavefm/aidj/pkg/provider/embeddings"
	embeddingsollama "github.com/airwavefm/aidj/pkg/provider/embeddings/ollama"
	embeddingsopenai "github.com/airwavefm/aidj/pkg/provider/embeddings/openai"
	"github.com/airwavefm/aidj/pkg/provider/fetcher"
	fetcherhttp "github.com/airwavefm/aidj/pkg/provider/fetcher/http"
	"github.com/airwavefm/aidj/pkg/provider/llm"
	"github.com/airwavefm/aidj/pkg/provider/llm/anyllm"
	llmopenai "github.com/airwavefm/aidj/pkg/provider/llm/openai"
	"github.com/airwavefm/aidj/pkg/provider/metadata"
	metadatahttp "github.com/airwavefm/aidj/pkg/provider/metadata/http"
	"github.com/airwavefm/aidj/pkg/provider/tts"
	ttselevenlabs "github.com/airwavefm/aidj/pkg/provider/tts/elevenlabs"
	ttsopenai "github.com/airwavefm/aidj/pkg/provider/tts/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "aidj: config file %q not found — pass -config with the path to a YAML configuration file\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "aidj: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("aidj starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	// ── Application wiring ────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("broadcaster ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// builtinProviders maps provider category names to the implementations that
// ship with the broadcaster. Nothing reads it at run time;
// registerBuiltinProviders registers the same names directly.
var builtinProviders = map[string][]string{
	"llm":        {"openai", "anyllm"},
	"tts":        {"openai", "elevenlabs"},
	"metadata":   {"http"},
	"fetcher":    {"http"},
	"embeddings": {"openai", "ollama"},
}

// registerBuiltinProviders wires the real provider constructors into reg under
// the names listed in builtinProviders.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterLLM("openai", func(e config.ProviderEntry) (llm.Provider, error) {
		return llmopenai.New(e.APIKey, e.Model, llmOptionsFromEntry(e)...)
	})
	reg.RegisterLLM("anyllm", func(e config.ProviderEntry) (llm.Provider, error) {
		backend := stringOption(e.Options, "backend", "openai")
		opts := []anyllmlib.Option{anyllmlib.WithAPIKey(e.APIKey)}
		if e.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(e.BaseURL))
		}
		return anyllm.New(backend, e.Model, opts...)
	})

	reg.RegisterTTS("openai", func(e config.ProviderEntry) (tts.Provider, error) {
		opts := []ttsopenai.Option{ttsopenai.WithModel(e.Model)}
		if e.BaseURL != "" {
			opts = append(opts, ttsopenai.WithBaseURL(e.BaseURL))
		}
		return ttsopenai.New(e.APIKey, opts...)
	})
	reg.RegisterTTS("elevenlabs", func(e config.ProviderEntry) (tts.Provider, error) {
		opts := []ttselevenlabs.Option{ttselevenlabs.WithModel(e.Model)}
		return ttselevenlabs.New(e.APIKey, opts...)
	})

	reg.RegisterMetadata("http", func(e config.ProviderEntry) (metadata.Provider, error) {
		return metadatahttp.New(e.BaseURL, e.APIKey), nil
	})

	reg.RegisterFetcher("http", func(e config.ProviderEntry) (fetcher.Provider, error) {
		return fetcherhttp.New(e.BaseURL, e.APIKey), nil
	})

	reg.RegisterEmbeddings("openai", func(e config.ProviderEntry) (embeddings.Provider, error) {
		return embeddingsopenai.New(e.APIKey, e.Model)
	})
	reg.RegisterEmbeddings("ollama", func(e config.ProviderEntry) (embeddings.Provider, error) {
		baseURL := e.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return embeddingsollama.New(baseURL, e.Model)
	})
}

// llmOptionsFromEntry translates the shared config.ProviderEntry fields into
// llmopenai.Option values.
func llmOptionsFromEntry(e config.ProviderEntry) []llmopenai.Option {
	var opts []llmopenai.Option
	if e.BaseURL != "" {
		opts = append(opts, llmopenai.WithBaseURL(e.BaseURL))
	}
	if org := stringOption(e.Options, "organization", ""); org != "" {
		opts = append(opts, llmopenai.WithOrganization(org))
	}
	return opts
}

// stringOption extracts a string option by key, returning def when absent or
// of the wrong type.
func stringOption(opts map[string]any, key, def string) string {
	if opts == nil {
		return def
	}
	if v, ok := opts[key].(string); ok && v != "" {
		return v
	}
	return def
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to consume.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	p, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	ps.LLM = p
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name)

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		ps.TTS = p
		slog.Info("provider created", "kind", "tts", "name", name)

		if fbName := cfg.Providers.TTSFallback.Name; fbName != "" {
			fb, err := reg.CreateTTS(cfg.Providers.TTSFallback)
			if err != nil {
				return nil, fmt.Errorf("create tts_fallback provider %q: %w", fbName, err)
			}
			ps.TTSFallback = fb
			slog.Info("provider created", "kind", "tts_fallback", "name", fbName)
		}
	} else {
		slog.Warn("no tts provider configured — segments will be instrumental-only")
	}

	p2, err := reg.CreateMetadata(cfg.Providers.Metadata)
	if err != nil {
		return nil, fmt.Errorf("create metadata provider %q: %w", cfg.Providers.Metadata.Name, err)
	}
	ps.Metadata = p2
	slog.Info("provider created", "kind", "metadata", "name", cfg.Providers.Metadata.Name)

	p3, err := reg.CreateFetcher(cfg.Providers.Fetcher)
	if err != nil {
		return nil, fmt.Errorf("create fetcher provider %q: %w", cfg.Providers.Fetcher.Name, err)
	}
	ps.Fetcher = p3
	slog.Info("provider created", "kind", "fetcher", "name", cfg.Providers.Fetcher.Name)

	if name := cfg.Providers.Embeddings.Name; name != "" {
		p, err := reg.CreateEmbeddings(cfg.Providers.Embeddings)
		if err != nil {
			return nil, fmt.Errorf("create embeddings provider %q: %w", name, err)
		}
		ps.Embeddings = p
		slog.Info("provider created", "kind", "embeddings", "name", name)
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         aidj — startup summary        ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("Metadata", cfg.Providers.Metadata.Name, "")
	printProvider("Fetcher", cfg.Providers.Fetcher.Name, "")
	printProvider("Embeddings", cfg.Providers.Embeddings.Name, cfg.Providers.Embeddings.Model)
	fmt.Printf("║  Cache budget    : %-19s ║\n", formatBytes(cfg.Cache.MaxBytes))
	fmt.Printf("║  Queue capacity  : %-19d ║\n", cfg.Session.QueueCapacity)
	fmt.Printf("║  Session mode    : %-19s ║\n", fallback(cfg.Session.Mode, "autonomous"))
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func formatBytes(b int64) string {
	const gb = 1 << 30
	if b <= 0 {
		return "(default)"
	}
	return fmt.Sprintf("%.1f GB", float64(b)/gb)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
