package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/repository"
	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/roster"
	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/turnaround"
)

// MailPublisher 是 *amqp.Channel 中用到的部分，方便在测试中替换
type MailPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// FeedFetcher 获取排班日历的原始文本
type FeedFetcher interface {
	Fetch(ctx context.Context) (string, error)
}

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	translator  ut.Translator
	mailChannel MailPublisher
	redisClient *redis.Client
	feed        FeedFetcher
	location    *time.Location
	parser      *roster.Parser
	engine      *turnaround.Engine

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, mailCh MailPublisher, rdb *redis.Client, feed FeedFetcher) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	en := en.New()
	uni := ut.New(en, en)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		mailChannel: mailCh,
		redisClient: rdb,
		feed:        feed,
		location:    loc,
		parser:      roster.NewParser(loc),
		engine:      turnaround.New(loc, cfg.MinRest()),

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Get("/healthz", h.Healthz)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在输入访问码后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/shifts", func(r chi.Router) {
			r.Get("/feed", h.GetFeedShifts)
			r.Post("/upload", h.UploadShifts)
		})

		r.Route("/trades", func(r chi.Router) {
			r.Post("/analyze", h.AnalyzeTrades)
			r.Post("/inquiries", h.SendTradeInquiry)
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Put("/", h.UpsertContact)
			r.Get("/{name}", h.GetContact)
		})
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "ok", nil)
}
