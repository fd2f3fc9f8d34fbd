package handler

import (
	"github.com/go-telegram/bot"
	"github.com/studykit/chemtutor/internal/config"
	"github.com/studykit/chemtutor/internal/service"
	tg "github.com/studykit/chemtutor/internal/telegram"
)

// Handler holds all dependencies needed by command, callback and message
// handlers. It is the orchestration layer: it owns session/transcript
// mutation and maps gateway failures to user-facing messages.
type Handler struct {
	bot            *bot.Bot
	cfg            *config.Config
	userService    *service.UserService
	sessionService *service.SessionService
	usageService   *service.UsageService
	gemini         *service.GeminiService
	inflight       *service.Inflight
	chLogger       *tg.ChannelLogger
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot            *bot.Bot
	Cfg            *config.Config
	UserService    *service.UserService
	SessionService *service.SessionService
	UsageService   *service.UsageService
	Gemini         *service.GeminiService
	Inflight       *service.Inflight
	ChLogger       *tg.ChannelLogger
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:            deps.Bot,
		cfg:            deps.Cfg,
		userService:    deps.UserService,
		sessionService: deps.SessionService,
		usageService:   deps.UsageService,
		gemini:         deps.Gemini,
		inflight:       deps.Inflight,
		chLogger:       deps.ChLogger,
	}
}

// Register wires all command and callback handlers.
func (h *Handler) Register() {
	b := h.bot

	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/end", bot.MatchTypeExact, h.handleEnd)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/sessions", bot.MatchTypeExact, h.handleSessions)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/mode", bot.MatchTypeExact, h.handleMode)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/settings", bot.MatchTypeExact, h.handleSettings)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/link", bot.MatchTypePrefix, h.handleLink)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/usage", bot.MatchTypeExact, h.handleUsage)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypeExact, h.handleStats)

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "sessions_", bot.MatchTypePrefix, h.handleSessionsCallback)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "sess_", bot.MatchTypePrefix, h.handleSessionCallback)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "mode_", bot.MatchTypePrefix, h.handleModeCallback)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "set_", bot.MatchTypePrefix, h.handleSettingsCallback)
}
