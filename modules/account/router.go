// Package account mounts the per-account HTTP surface.
package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures which handlers are mounted under /accounts/{id}.
// Each handler is optional and will only be mounted if provided.
type RouterOptions struct {
	Status   Mountable
	Takeover Mountable
	Members  Mountable
}

// Router creates the account router. Every route requires the caller
// identity middleware to run first.
//
// Example:
//
//	r := chi.NewRouter()
//	r.With(core.RequireUser).Mount("/accounts", account.Router(account.RouterOptions{
//	    Status:   account.NewStatusHandler(accounts, log),
//	    Takeover: family.NewTakeoverHandler(takeovers, log),
//	}))
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Route("/{id}", func(acc chi.Router) {
		if opts.Status != nil {
			acc.Mount("/status", opts.Status.Handle())
		}
		if opts.Takeover != nil {
			acc.Mount("/takeover", opts.Takeover.Handle())
		}
		if opts.Members != nil {
			acc.Mount("/members", opts.Members.Handle())
		}
	})

	return r
}
