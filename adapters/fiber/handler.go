package fiber

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/lborres/quill/core"
	"github.com/lborres/quill/internal/metrics"
)

const (
	sessionCookie = "quill_session"
	stateCookie   = "quill_oidc_state"

	stateCookiePath = "/auth/google"
	stateCookieTTL  = 10 * time.Minute
)

func (a *Adapter) home(c fiber.Ctx) error {
	body := fiber.Map{"service": "quill"}
	if p, ok := principalFrom(c); ok {
		body["principal"] = p
	}
	return c.JSON(body)
}

func (a *Adapter) register(c fiber.Ctx) error {
	var input core.SignUpInput
	if err := c.Bind().Body(&input); err != nil {
		return badRequest(c, "invalid request body")
	}

	result, err := a.opts.Auth.SignUp(c.Context(), input, clientInfo(c))
	a.observeAuth(metrics.MethodRegister, err)
	if err != nil {
		return a.handleError(c, err)
	}

	a.setSessionCookie(c, result.Token, result.Session.ExpiresAt)
	return seeOther(c, "/posts")
}

func (a *Adapter) signin(c fiber.Ctx) error {
	var input core.SignInInput
	if err := c.Bind().Body(&input); err != nil {
		return badRequest(c, "invalid request body")
	}

	result, err := a.opts.Auth.SignIn(c.Context(), input, clientInfo(c))
	a.observeAuth(metrics.MethodLocal, err)
	if err != nil {
		return a.handleError(c, err)
	}

	a.setSessionCookie(c, result.Token, result.Session.ExpiresAt)
	return seeOther(c, "/posts")
}

func (a *Adapter) federatedStart(c fiber.Ctx) error {
	if a.opts.Federation == nil {
		return notFound(c)
	}

	redirectURL, state, err := a.opts.Federation.Start(c.Context())
	if err != nil {
		return a.handleError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     stateCookiePath,
		Expires:  time.Now().Add(stateCookieTTL),
		HTTPOnly: true,
		Secure:   a.opts.CookieSecure,
		SameSite: a.stateSameSite(),
	})
	return c.Redirect().Status(fiber.StatusFound).To(redirectURL)
}

// stateSameSite lets the state cookie ride a cross-site form_post callback.
// Browsers only accept SameSite=None on Secure cookies.
func (a *Adapter) stateSameSite() string {
	if a.opts.CookieSecure {
		return fiber.CookieSameSiteNoneMode
	}
	return fiber.CookieSameSiteLaxMode
}

// callbackParams reads code and state from the query, or from the form body
// when the provider answers with response_mode=form_post.
func callbackParams(c fiber.Ctx) (code, state string) {
	if c.Method() == fiber.MethodPost {
		return c.FormValue("code"), c.FormValue("state")
	}
	return c.Query("code"), c.Query("state")
}

func (a *Adapter) federatedCallback(c fiber.Ctx) error {
	if a.opts.Federation == nil {
		return notFound(c)
	}

	state := c.Cookies(stateCookie)
	c.Cookie(expiredCookie(stateCookie, stateCookiePath))

	code, returned := callbackParams(c)
	email, err := a.opts.Federation.Exchange(c.Context(), code, returned, state)
	if err != nil {
		a.observeAuth(metrics.MethodFederated, err)
		a.log.Info("federated exchange rejected", zap.Error(err))
		return seeOther(c, "/login")
	}

	result, err := a.opts.Auth.SignInFederated(c.Context(), email, clientInfo(c))
	a.observeAuth(metrics.MethodFederated, err)
	if err != nil {
		return a.handleError(c, err)
	}

	a.setSessionCookie(c, result.Token, result.Session.ExpiresAt)
	return seeOther(c, "/posts")
}

func (a *Adapter) signout(c fiber.Ctx) error {
	if token := extractToken(c); token != "" {
		if err := a.opts.Auth.SignOut(c.Context(), token); err != nil {
			return a.handleError(c, err)
		}
	}

	c.Cookie(expiredCookie(sessionCookie, "/"))
	return seeOther(c, "/")
}

func (a *Adapter) listPosts(c fiber.Ctx) error {
	p, _ := principalFrom(c)

	posts, err := a.opts.Posts.List(c.Context(), p)
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(posts)
}

func (a *Adapter) createPost(c fiber.Ctx) error {
	p, _ := principalFrom(c)

	var input core.PostInput
	if err := c.Bind().Body(&input); err != nil {
		return badRequest(c, "invalid request body")
	}

	if _, err := a.opts.Posts.Create(c.Context(), p, input); err != nil {
		return a.handleError(c, err)
	}
	return seeOther(c, "/posts")
}

func (a *Adapter) getPost(c fiber.Ctx) error {
	p, _ := principalFrom(c)

	id, ok := postID(c)
	if !ok {
		return notFound(c)
	}

	post, err := a.opts.Posts.Get(c.Context(), p, id)
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(post)
}

func (a *Adapter) updatePost(c fiber.Ctx) error {
	p, _ := principalFrom(c)

	id, ok := postID(c)
	if !ok {
		return notFound(c)
	}

	var input core.PostInput
	if err := c.Bind().Body(&input); err != nil {
		return badRequest(c, "invalid request body")
	}

	if _, err := a.opts.Posts.Update(c.Context(), p, id, input); err != nil {
		return a.handleError(c, err)
	}
	return seeOther(c, "/posts")
}

func (a *Adapter) deletePost(c fiber.Ctx) error {
	p, _ := principalFrom(c)

	id, ok := postID(c)
	if !ok {
		return notFound(c)
	}

	if err := a.opts.Posts.Delete(c.Context(), p, id); err != nil {
		return a.handleError(c, err)
	}
	return seeOther(c, "/posts")
}

func (a *Adapter) health(c fiber.Ctx) error {
	if a.opts.Health != nil {
		if err := a.opts.Health(c.Context()); err != nil {
			a.log.Warn("health check failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (a *Adapter) serveMetrics(c fiber.Ctx) error {
	if a.opts.Metrics == nil {
		return notFound(c)
	}
	return adaptor.HTTPHandler(a.opts.Metrics.Handler())(c)
}

func (a *Adapter) observeAuth(method string, err error) {
	if a.opts.Metrics != nil {
		a.opts.Metrics.ObserveAuth(method, err)
	}
}

func (a *Adapter) setSessionCookie(c fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   a.opts.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func expiredCookie(name, path string) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

// extractToken extracts the session token from the request.
// Checks the session cookie first, then falls back to a Bearer header.
func extractToken(c fiber.Ctx) string {
	if token := c.Cookies(sessionCookie); token != "" {
		return token
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func clientInfo(c fiber.Ctx) core.ClientInfo {
	return core.ClientInfo{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}

func postID(c fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil && id > 0
}

func seeOther(c fiber.Ctx, location string) error {
	return c.Redirect().Status(fiber.StatusSeeOther).To(location)
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(http.StatusBadRequest).JSON(core.ErrorResponse{
		Error: msg,
		Code:  http.StatusBadRequest,
	})
}

func notFound(c fiber.Ctx) error {
	return c.Status(http.StatusNotFound).JSON(core.ErrorResponse{
		Error: "not found",
		Code:  http.StatusNotFound,
	})
}

// handleError maps service errors to HTTP responses. Authentication failures
// go back to the login page; server faults are logged and reported without
// detail.
func (a *Adapter) handleError(c fiber.Ctx, err error) error {
	status := mapErrorToStatus(err)

	switch status {
	case http.StatusUnauthorized, http.StatusConflict:
		return seeOther(c, "/login")

	case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
		return c.Status(status).JSON(core.ErrorResponse{
			Error: err.Error(),
			Code:  status,
		})

	case http.StatusGatewayTimeout:
		a.log.Warn("request timed out",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(status).JSON(core.ErrorResponse{Error: "timeout", Code: status})

	default:
		a.log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(status).JSON(core.ErrorResponse{Error: "internal error"})
	}
}

// mapErrorToStatus maps core error types to HTTP status codes
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, core.ErrTimeout):
		return http.StatusGatewayTimeout

	case errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, core.ErrNotAuthenticated),
		errors.Is(err, core.ErrFederationExchangeFailed),
		errors.Is(err, core.ErrLinkingDisabled),
		errors.Is(err, core.ErrSessionNotFound):
		return http.StatusUnauthorized

	case errors.Is(err, core.ErrAccountExists):
		return http.StatusConflict

	case errors.Is(err, core.ErrEmailRequired),
		errors.Is(err, core.ErrPasswordRequired),
		errors.Is(err, core.ErrPasswordTooShort),
		errors.Is(err, core.ErrPasswordTooLong),
		errors.Is(err, core.ErrInvalidEmail):
		return http.StatusBadRequest

	case errors.Is(err, core.ErrPostNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden

	default:
		return http.StatusInternalServerError
	}
}
