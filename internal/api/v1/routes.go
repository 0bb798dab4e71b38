package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/auth"
	"github.com/dsa-patterns/dsa-api/internal/config"
	"github.com/dsa-patterns/dsa-api/internal/logging"
	"github.com/dsa-patterns/dsa-api/internal/mail"
	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/service"
	"github.com/dsa-patterns/dsa-api/internal/store"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

type serviceStore struct {
	*store.Store
}

type API struct {
	cfg     *config.Config
	router  *chi.Mux
	store   *store.Store
	log     *zap.Logger
	mailer  mail.Mailer
	storage utils.Storage
}

func NewAPI(cfg *config.Config, s *store.Store, log *zap.Logger, mailer mail.Mailer, storage utils.Storage) *API {
	api := &API{cfg: cfg, router: chi.NewRouter(), store: s, log: log, mailer: mailer, storage: storage}
	api.router.Use(logging.RequestLogger(log))
	api.routes()
	return api
}

func (a *API) Routes() *chi.Mux {
	return a.router
}

func (a *API) routes() {
	ss := serviceStore{a.store}

	usvc := service.NewUserService(a.store, a.log)
	learning := service.NewLearningService(a.store, a.cfg, a.log)
	mentorship := service.NewMentorshipService(a.store, learning, a.log)
	moderation := service.NewModerationService(a.store, usvc, a.mailer, a.cfg, a.log)
	maintenance := service.NewMaintenanceService(a.store, a.mailer, a.cfg, a.log)
	analytics := service.NewAnalyticsService(a.store)

	authH := NewAuthHandler(a.cfg, usvc, ss, a.log)
	userH := NewUserHandler(ss, usvc, analytics, a.storage, a.log)
	imageH := NewImageHandler(ss, usvc, a.storage, a.log)
	learnH := NewLearningHandler(learning, a.log)
	mentorH := NewMentorshipHandler(mentorship, a.log)
	notifH := NewNotificationHandler(ss, a.log)
	appealH := NewAppealHandler(moderation, a.log)
	adminH := NewAdminHandler(moderation, learning, analytics, a.log)
	cronH := NewCronHandler(maintenance, a.log)

	authed := auth.AuthMiddleware(a.store)

	r := a.router
	// auth routes
	r.Route("/auth", func(r chi.Router) {
		r.Options("/*", func(w http.ResponseWriter, r *http.Request) {})
		r.Post("/signup", authH.Signup)
		r.Post("/login", authH.Login)
		r.Post("/logout", authH.Logout)
		r.Post("/refresh", authH.Refresh)
		r.Post("/google", authH.GoogleSignIn)
	})

	r.Route("/users", func(r chi.Router) {
		r.Options("/*", func(w http.ResponseWriter, r *http.Request) {})
		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Get("/me", userH.GetSelfProfile)
			r.Put("/me", userH.UpdateSelf)
			r.Post("/me/password", userH.ChangePassword)
			r.Post("/me/avatar", imageH.UploadAvatar)
			r.Delete("/me/avatar", imageH.DeleteAvatar)
			r.Get("/me/dashboard", userH.Dashboard)
		})
	})

	// roadmaps are public so the catalogue can be browsed before signup
	r.Route("/roadmaps", func(r chi.Router) {
		r.Options("/*", func(w http.ResponseWriter, r *http.Request) {})
		r.Get("/", learnH.ListRoadmaps)
		// admins signed in can preview drafts
		r.With(auth.OptionalAuthMiddleware(a.store)).Get("/{slug}", learnH.GetRoadmap)
	})

	r.Route("/progress", func(r chi.Router) {
		r.Options("/*", func(w http.ResponseWriter, r *http.Request) {})
		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Get("/", learnH.ListProgress)
			r.Get("/{roadmapID}", learnH.GetProgress)
			r.Post("/{roadmapID}/subtopics/{subtopicID}/toggle", learnH.ToggleSubtopic)
		})
	})

	r.Route("/bookmarks", func(r chi.Router) {
		r.Options("/*", func(w http.ResponseWriter, r *http.Request) {})
		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Get("/", learnH.ListBookmarks)
			r.Post("/toggle", learnH.ToggleBookmark)
		})
	})

	r.Route("/quizzes", func(r chi.Router) {
		r.Options("/*", func(w http.ResponseWriter, r *http.Request) {})
		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Get("/{roadmapID}", learnH.GetQuiz)
			r.Post("/{roadmapID}/submit", learnH.SubmitQuiz)
			r.Get("/{roadmapID}/results", learnH.ListResults)
		})
	})

	r.With(authed).Get("/badges", learnH.ListBadges)

	r.Route("/mentorship", func(r chi.Router) {
		r.Options("/*", func(w http.ResponseWriter, r *http.Request) {})
		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Post("/", mentorH.Create)
			r.Get("/", mentorH.ListMine)
			r.Post("/{id}/resolve", mentorH.Resolve)
			r.With(auth.RoleMiddleware(models.RoleMentor, models.RoleAdmin)).Get("/open", mentorH.ListOpen)
			r.With(auth.RoleMiddleware(models.RoleMentor, models.RoleAdmin)).Post("/{id}/respond", mentorH.Respond)
		})
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Options("/*", func(w http.ResponseWriter, r *http.Request) {})
		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Get("/", notifH.List)
			r.Post("/read-all", notifH.MarkAllRead)
			r.Post("/{id}/read", notifH.MarkRead)
		})
	})

	r.Post("/appeals", appealH.Submit)

	r.Route("/admin", func(r chi.Router) {
		r.Options("/*", func(w http.ResponseWriter, r *http.Request) {})

		// All admin routes require authentication and admin role
		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Use(auth.RoleMiddleware(models.RoleAdmin))

			// User management
			r.Get("/users", adminH.ListUsers)
			r.Put("/users/{id}/role", adminH.ChangeRole)
			r.Post("/users/{id}/block", adminH.BlockUser)
			r.Post("/users/{id}/unblock", adminH.UnblockUser)

			// Content
			r.Get("/roadmaps", adminH.ListRoadmaps)
			r.Post("/roadmaps", adminH.CreateRoadmap)
			r.Put("/roadmaps/{id}", adminH.UpdateRoadmap)
			r.Delete("/roadmaps/{id}", adminH.DeleteRoadmap)
			r.Post("/roadmaps/{id}/nodes", adminH.AddNode)
			r.Post("/roadmaps/{id}/questions", adminH.AddQuestion)
			r.Delete("/questions/{id}", adminH.DeleteQuestion)

			// Appeals and escalations
			r.Get("/appeals", adminH.ListAppeals)
			r.Post("/appeals/{id}/approve", adminH.ApproveAppeal)
			r.Post("/appeals/{id}/reject", adminH.RejectAppeal)
			r.Get("/escalations", adminH.ListEscalations)
			r.Post("/escalations/{id}/resolve", adminH.ResolveEscalation)
			r.Get("/insights", adminH.Insights)

			// Reporting
			r.Get("/analytics", adminH.Analytics)
			r.Get("/activity", adminH.ListActivity)
			r.Get("/export/users.csv", adminH.ExportUsers)
			r.Get("/export/progress.csv", adminH.ExportProgress)
		})
	})

	r.With(auth.CronSecretMiddleware(a.cfg.CronSecret)).Post("/cron/maintenance", cronH.Maintenance)

	r.Route("/health", func(r chi.Router) {
		r.Options("/*", func(w http.ResponseWriter, r *http.Request) {})
		r.Get("/", HealthHandler(a.store))
	})
}
