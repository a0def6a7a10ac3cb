package cmd

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/photovault/photovault/core"
	accountmod "github.com/photovault/photovault/modules/account"
	billingmod "github.com/photovault/photovault/modules/billing"
	familymod "github.com/photovault/photovault/modules/family"
	gallerymod "github.com/photovault/photovault/modules/gallery"
	"github.com/photovault/photovault/pkg/httpserver"
	"github.com/photovault/photovault/pkg/requestid"
)

// router mounts the public API. Webhooks authenticate through provider
// signatures; everything else needs the caller id from the gateway.
func (a *app) router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)

	var checks []httpserver.Check
	if a.pool != nil {
		checks = append(checks, httpserver.Check{Name: "postgres", Ping: a.pool.Ping})
	}
	if a.redis != nil {
		checks = append(checks, httpserver.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}})
	}
	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(a.log, checks...))

	r.Mount("/webhooks", billingmod.NewWebhookHandler(a.processor, a.log).Handle())

	r.Group(func(r chi.Router) {
		r.Use(core.RequireUser)
		r.Mount("/accounts", accountmod.Router(accountmod.RouterOptions{
			Status:   accountmod.NewStatusHandler(a.accounts, a.log),
			Takeover: familymod.NewTakeoverHandler(a.family, a.log),
			Members:  familymod.NewMembersHandler(a.family, a.accounts, a.log),
		}))
		r.Mount("/galleries", gallerymod.NewHandler(a.copier, a.log).Handle())
		r.Mount("/photographers", billingmod.NewCommissionsHandler(a.commissions, a.log).Handle())
	})

	return r
}
