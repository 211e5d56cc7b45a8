package fiber

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/lborres/quill/core"
	"github.com/lborres/quill/internal/metrics"
	"github.com/lborres/quill/services"
)

// Options wires the application services into the HTTP adapter.
type Options struct {
	Auth  core.AuthHandler
	Posts core.PostHandler

	// Federation is optional. Without it the federated routes answer 404.
	Federation core.IdentityExchanger

	// Metrics is optional. Without it /metrics answers 404.
	Metrics *metrics.Metrics

	// Health reports backend readiness for /healthz. Nil means always ready.
	Health func(ctx context.Context) error

	// CookieSecure marks cookies Secure. Enable it behind TLS.
	CookieSecure bool

	Logger *zap.Logger
}

type Adapter struct {
	app  *fiber.App
	opts Options
	log  *zap.Logger
}

func New(app *fiber.App, opts Options) *Adapter {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{app: app, opts: opts, log: logger}
}

// RegisterRoutes binds a handler to every endpoint in the registry by its
// operation id. An endpoint without a handler is a wiring error.
func (a *Adapter) RegisterRoutes(registry *services.EndpointRegistry) error {
	handlers := a.handlers()

	for _, ep := range registry.Endpoints() {
		h, ok := handlers[ep.Metadata.OperationID]
		if !ok {
			return fmt.Errorf("no handler for operation %q (%s %s)", ep.Metadata.OperationID, ep.Method, ep.Path)
		}
		a.app.Add([]string{ep.Method}, ep.Path, a.wrap(ep, h))
		a.log.Debug("route registered",
			zap.String("method", ep.Method),
			zap.String("path", ep.Path),
			zap.String("operation", ep.Metadata.OperationID),
		)
	}

	return nil
}

func (a *Adapter) handlers() map[string]fiber.Handler {
	return map[string]fiber.Handler{
		services.OpHome:              a.home,
		services.OpRegister:          a.register,
		services.OpSignIn:            a.signin,
		services.OpFederatedStart:    a.federatedStart,
		services.OpFederatedCallback: a.federatedCallback,
		services.OpSignOut:           a.signout,
		services.OpListPosts:         a.listPosts,
		services.OpCreatePost:        a.createPost,
		services.OpGetPost:           a.getPost,
		services.OpUpdatePost:        a.updatePost,
		services.OpDeletePost:        a.deletePost,
		services.OpHealth:            a.health,
		services.OpMetrics:           a.serveMetrics,
	}
}
