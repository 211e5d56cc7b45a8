package services

import (
	"fmt"
	"sort"

	"github.com/lborres/quill/core"
)

// Operation ids shared by every HTTP adapter.
const (
	OpHome              = "home"
	OpRegister          = "signUpWithEmailAndPassword"
	OpSignIn            = "signInWithEmailAndPassword"
	OpFederatedStart    = "federatedStart"
	OpFederatedCallback = "federatedCallback"
	OpSignOut           = "signOut"
	OpListPosts         = "listPosts"
	OpCreatePost        = "createPost"
	OpGetPost           = "getPost"
	OpUpdatePost        = "updatePost"
	OpDeletePost        = "deletePost"
	OpHealth            = "health"
	OpMetrics           = "metrics"
)

// BaseEndpoints returns framework-agnostic endpoint specifications for the
// whole application. Adapters bind a handler to each OperationID.
func BaseEndpoints() []core.Endpoint {
	return []core.Endpoint{
		{
			Path:   "/",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: OpHome,
				Description: "Landing page",
			},
		},
		{
			Path:   "/register",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: OpRegister,
				Description: "Register an account using email and password",
			},
		},
		{
			Path:   "/login",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: OpSignIn,
				Description: "Sign in using email and password",
			},
		},
		{
			Path:   "/auth/google",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: OpFederatedStart,
				Description: "Redirect to the identity provider",
			},
		},
		{
			Path:   "/auth/google/posts",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: OpFederatedCallback,
				Description: "Complete federated sign-in",
			},
		},
		{
			Path:   "/auth/google/posts",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: OpFederatedCallback,
				Description: "Complete federated sign-in posted back by the provider",
			},
		},
		{
			Path:   "/logout",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: OpSignOut,
				Description: "Invalidate the current session",
			},
		},
		{
			Path:   "/posts",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: OpListPosts,
				Description: "List the current account's posts",
				Protected:   true,
			},
		},
		{
			Path:   "/create/posts",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: OpCreatePost,
				Description: "Create a post owned by the current account",
				Protected:   true,
			},
		},
		{
			Path:   "/edit/:id",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: OpGetPost,
				Description: "Fetch a post for editing",
				Protected:   true,
			},
		},
		{
			Path:   "/edit/posts/:id",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: OpUpdatePost,
				Description: "Update a post",
				Protected:   true,
			},
		},
		{
			Path:   "/posts/delete/:id",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: OpDeletePost,
				Description: "Delete a post",
				Protected:   true,
			},
		},
		{
			Path:   "/healthz",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: OpHealth,
				Description: "Liveness probe",
			},
		},
		{
			Path:   "/metrics",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: OpMetrics,
				Description: "Prometheus metrics",
			},
		},
	}
}

// EndpointRegistry manages a collection of framework-agnostic endpoints
// and handles conflict detection for duplicate METHOD:PATH combinations.
type EndpointRegistry struct {
	// endpoints stores all registered endpoints keyed by "METHOD:PATH"
	endpoints map[string]*core.Endpoint
}

// NewEndpointRegistry creates a registry with every base endpoint registered.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
	}

	for _, ep := range BaseEndpoints() {
		ep := ep
		// base endpoints are unique by construction
		_ = reg.Register(&ep)
	}

	return reg
}

// Register adds a single endpoint with conflict detection.
func (r *EndpointRegistry) Register(ep *core.Endpoint) error {
	key := fmt.Sprintf("%s:%s", ep.Method, ep.Path)

	if _, exists := r.endpoints[key]; exists {
		return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
	}

	r.endpoints[key] = ep
	return nil
}

// Endpoints returns all registered endpoints ordered by path then method.
func (r *EndpointRegistry) Endpoints() []*core.Endpoint {
	result := make([]*core.Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		result = append(result, ep)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Path != result[j].Path {
			return result[i].Path < result[j].Path
		}
		return result[i].Method < result[j].Method
	})
	return result
}
