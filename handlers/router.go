package handlers

import (
	"net/http"
	"strings"

	"msgboard/caps"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SetupRouter builds the board's routes. Paths come from the board's URL
// layout; trailing slashes are stripped before routing.
func SetupRouter(app App) *chi.Mux {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(NewStructuredLogger(app.Logger()))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(app.Sessions().LoadAndSave)
	mux.Use(CurrentUserMiddleware(app))

	// Static file server
	mux.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(app.UploadDir()))))

	p := app.Board().Paths
	route := func(slug string) string { return "/" + strings.Trim(slug, "/") }
	index := strings.TrimSuffix(p.IndexURL(), "/")
	manage := RequireCapability(app, caps.ManageForums)

	if index == "" {
		mux.Get("/", MakeHandler(app, HandleIndex))
		mux.Post("/", MakeHandler(app, HandleBoardPost))
	} else {
		mux.Get(index, MakeHandler(app, HandleIndex))
		mux.Post(index, MakeHandler(app, HandleBoardPost))
	}
	mux.Get(index+"/challenge", MakeHandler(app, HandleNewChallenge))
	mux.Post(index+"/register", MakeHandler(app, HandleRegister))
	mux.Post(index+"/logout", MakeHandler(app, HandleLogout))
	mux.Post(route(p.LoginSlug()), MakeHandler(app, HandleLogin))
	mux.Get(route(p.SearchSlug()), MakeHandler(app, HandleSearch))
	mux.With(manage).Post(index+"/backup", MakeHandler(app, HandleDatabaseBackup))
	mux.With(manage).Get(index+"/log", MakeHandler(app, HandleModLog))

	mux.Route(route(p.ForumSlug()), func(r chi.Router) {
		r.Get("/", MakeHandler(app, HandleForums))
		r.Get("/page/{page}", MakeHandler(app, HandleForums))
		r.With(manage).Post("/", MakeHandler(app, HandleCreateForum))
		r.Get("/{slug}", MakeHandler(app, HandleForum))
		r.Get("/{slug}/page/{page}", MakeHandler(app, HandleForum))
		r.With(manage).Post("/{slug}/edit", MakeHandler(app, HandleEditForum))
	})

	mux.Route(route(p.TopicSlug()), func(r chi.Router) {
		r.Get("/", MakeHandler(app, HandleTopics))
		r.Get("/page/{page}", MakeHandler(app, HandleTopics))
		r.Get("/{slug}", MakeHandler(app, HandleTopic))
		r.Get("/{slug}/page/{page}", MakeHandler(app, HandleTopic))
		r.Get("/{slug}/feed/{kind}", MakeHandler(app, HandleTopicFeed))
		r.Post("/{slug}/edit", MakeHandler(app, HandleEditTopic))
		r.With(manage).Post("/{slug}/type", MakeHandler(app, HandleTopicType))
		r.With(manage).Post("/{slug}/move", MakeHandler(app, HandleMoveTopic))
	})

	mux.Route(route(p.ReplySlug()), func(r chi.Router) {
		r.Get("/{id}", MakeHandler(app, HandleReply))
		r.Post("/{id}/edit", MakeHandler(app, HandleEditReply))
	})

	mux.Route(route(p.UserSlug()), func(r chi.Router) {
		r.Get("/", MakeHandler(app, HandleUsers))
		r.Get("/page/{page}", MakeHandler(app, HandleUsers))
		r.Get("/roles", MakeHandler(app, HandleRoles))
		r.Get("/roles/{role}", MakeHandler(app, HandleRole))
		r.Get("/roles/{role}/page/{page}", MakeHandler(app, HandleRole))
		r.Get("/{nicename}", MakeHandler(app, HandleUser))
		r.Post("/{nicename}/avatar", MakeHandler(app, HandleAvatarUpload))
		r.With(manage).Post("/{nicename}/role", MakeHandler(app, HandleSetUserRole))
		r.Get("/{nicename}/{userPage}", MakeHandler(app, HandleUserPage))
		r.Get("/{nicename}/{userPage}/page/{page}", MakeHandler(app, HandleUserPage))
	})

	return mux
}
