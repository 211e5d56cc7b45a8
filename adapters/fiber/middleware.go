package fiber

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lborres/quill/core"
	"github.com/lborres/quill/services"
)

const principalLocal = "principal"

// wrap runs the per-route chain: restore the principal, enforce the
// protected flag, call h, then record the response class.
func (a *Adapter) wrap(ep *core.Endpoint, h fiber.Handler) fiber.Handler {
	op := ep.Metadata.OperationID
	anonymous := op == services.OpHealth || op == services.OpMetrics

	return func(c fiber.Ctx) error {
		var err error
		switch {
		case anonymous:
			err = h(c)
		default:
			err = a.loadPrincipal(c, func(c fiber.Ctx) error {
				if ep.Metadata.Protected {
					return a.requireAuth(c, h)
				}
				return h(c)
			})
		}

		if a.opts.Metrics != nil {
			a.opts.Metrics.ObserveRequest(op, c.Response().StatusCode())
		}
		return err
	}
}

// loadPrincipal restores the session behind the request token, if any, and
// stores the principal both in Locals and on the request context.
func (a *Adapter) loadPrincipal(c fiber.Ctx, next fiber.Handler) error {
	token := extractToken(c)
	if token == "" {
		return next(c)
	}

	principal, err := a.opts.Auth.GetSession(c.Context(), token)
	if err != nil {
		return a.handleError(c, err)
	}
	if principal == nil {
		return next(c)
	}

	c.Locals(principalLocal, principal)
	c.SetContext(core.WithPrincipal(c.Context(), principal))
	return next(c)
}

// requireAuth sends anonymous requests to the login page.
func (a *Adapter) requireAuth(c fiber.Ctx, next fiber.Handler) error {
	if _, ok := principalFrom(c); !ok {
		return seeOther(c, "/login")
	}
	return next(c)
}

func principalFrom(c fiber.Ctx) (*core.Principal, bool) {
	p, ok := c.Locals(principalLocal).(*core.Principal)
	return p, ok && p != nil
}
