package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"pipartner/api/internal/config"
	"pipartner/api/internal/httpserver"
	"pipartner/api/internal/inference"
	"pipartner/api/internal/kv"
	"pipartner/api/internal/logging"
	"pipartner/api/internal/session"
	"pipartner/api/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.RequireBot(); err != nil {
		log.Fatal("config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("open store", zap.String("store", cfg.Store), zap.Error(err))
	}
	defer closeStore()

	solver := newSolver(cfg, log)

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal("telegram", zap.Error(err))
	}
	bot.Debug = false
	log.Info("authorized", zap.String("bot", bot.Self.UserName))

	r := &telegram.Router{
		Bot:         bot,
		Sessions:    session.NewManager(store, solver, log),
		Log:         log,
		HistoryPage: cfg.HistoryPage,
	}

	// tgbotapi.ListenForWebhook registers on DefaultServeMux, so health lives there too.
	httpserver.Register(http.DefaultServeMux, store)
	addr := "0.0.0.0:" + cfg.Port

	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		startWebhookMode(ctx, addr, bot, r, webhookURL, log)
	} else {
		startPollingMode(ctx, addr, bot, r, log)
	}
}

// openStore picks the kv backend named by STORE. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (kv.Store, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("using in-memory store, state is lost on restart")
		return kv.NewMemory(), func() {}, nil

	case config.StoreRedis:
		rdb, err := kv.OpenRedis(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("redis connected", zap.String("addr", rdb.Options().Addr))
		return kv.NewRedis(rdb), func() { _ = rdb.Close() }, nil

	case config.StoreSQLite:
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		db.SetMaxOpenConns(1)
		s := kv.NewSQLite(db)
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("sqlite opened", zap.String("path", cfg.SQLitePath))
		return s, func() { _ = db.Close() }, nil

	default:
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(1 * time.Hour)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("db.Ping: %w", err)
		}
		s := kv.NewPostgres(db)
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("db connected", zap.String("dsn", config.SafeDSNSummary(cfg.DatabaseURL)))
		return s, func() { _ = db.Close() }, nil
	}
}

// newSolver prefers the HTTP endpoint; GEMINI_API_KEY alone talks to Gemini directly.
func newSolver(cfg *config.Config, log *zap.Logger) inference.Solver {
	if cfg.InferenceURL != "" {
		log.Info("solver: http", zap.String("url", cfg.InferenceURL), zap.Duration("timeout", cfg.InferenceTimeout))
		return inference.NewClient(cfg.InferenceURL, cfg.InferenceTimeout)
	}
	log.Info("solver: gemini", zap.String("model", cfg.GeminiModel))
	return inference.NewGeminiSolver(cfg.GeminiAPIKey, cfg.GeminiModel)
}

// ---------------- Modes -----------------

func startWebhookMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string, log *zap.Logger) {
	// secret webhook path
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		log.Fatal("webhook", zap.Error(err))
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		log.Fatal("set webhook", zap.Error(err))
	}

	updates := bot.ListenForWebhook(path)
	go func() {
		for upd := range updates {
			r.HandleUpdate(ctx, upd)
		}
		log.Info("webhook updates channel closed")
	}()

	log.Info("webhook listening", zap.String("addr", addr), zap.String("path", path))
	if err := httpserver.Start(addr, http.DefaultServeMux, log); err != nil {
		log.Fatal("http server", zap.Error(err))
	}
}

func startPollingMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, log *zap.Logger) {
	// health endpoint only; polling does not need the server
	go func() {
		if err := httpserver.Start(addr, http.DefaultServeMux, log); err != nil {
			log.Error("http server", zap.Error(err))
		}
	}()

	runPolling(ctx, bot, log, func(upd tgbotapi.Update) {
		r.HandleUpdate(ctx, upd)
	})
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 from Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return 2 * time.Second
		}
	}
	return 1 * time.Second
}

func clampDelay(d, lo, hi time.Duration) time.Duration {
	return max(lo, min(d, hi))
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, log *zap.Logger, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			log.Info("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := clampDelay(retryDelayFromError(err), baseDelay, maxDelay)
			log.Warn("polling error", zap.Error(err), zap.Duration("retry_in", d))
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ---------------- Helpers -----------------

// shortHash is FNV-1a of s as 16 hex digits; stable per token, not a secret by itself.
func shortHash(s string) string {
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
