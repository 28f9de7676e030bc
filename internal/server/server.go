package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"craftplan/internal/app"
	"craftplan/internal/catalog"
	"craftplan/internal/engine"
	"craftplan/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	Repo     repo.Repo
	BasePath string
	Auth     AuthConfig
	Now      func() time.Time
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"cycle_detected"`
	Message string         `json:"message" example:"crafting cycle detected: A -> B -> A"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the craftplan API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Craftplan API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerOpenAPI(router, api, basePath)
	registerHealth(group)
	registerItems(group, cfg.Engine)
	registerPlans(group, cfg)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var cerr engine.CycleError
	if errors.As(err, &cerr) {
		return newAPIError(http.StatusUnprocessableEntity, "cycle_detected", err.Error(), map[string]any{"item": cerr.Item})
	}
	var verr catalog.InvalidRuleError
	if errors.As(err, &verr) {
		return newAPIError(http.StatusUnprocessableEntity, "invalid_rule", err.Error(), map[string]any{"item": verr.Item})
	}
	var derr engine.InconsistentDataError
	if errors.As(err, &derr) {
		return newAPIError(http.StatusUnprocessableEntity, "inconsistent_data", err.Error(), map[string]any{"item": derr.Item})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "must be") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<!doctype html>
<html>
<head><title>Craftplan API</title>
<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css"></head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>SwaggerUIBundle({url: %q, dom_id: "#swagger-ui"});</script>
</body>
</html>`, path.Join(basePath, "openapi.json"))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, _ *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerItems(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-items",
		Method:      http.MethodGet,
		Path:        "/items",
		Summary:     "List catalog items",
		Description: "Lists the explicitly known items, optionally filtered by case-insensitive substring.",
	}, func(ctx context.Context, input *struct {
		Query string `query:"q" required:"false"`
	}) (*struct {
		Body []ItemResponse `json:"body"`
	}, error) {
		items := []ItemResponse{}
		needle := strings.ToLower(strings.TrimSpace(input.Query))
		for _, name := range e.Catalog.Items() {
			if needle != "" && !strings.Contains(strings.ToLower(name), needle) {
				continue
			}
			items = append(items, itemResponse(e.Catalog.Lookup(name)))
		}
		return &struct {
			Body []ItemResponse `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-item",
		Method:      http.MethodGet,
		Path:        "/items/{item}",
		Summary:     "Show an item's acquisition rule",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Item string `path:"item"`
	}) (*struct {
		Body ItemResponse `json:"body"`
	}, error) {
		if !e.Catalog.Has(input.Item) {
			return nil, newAPIError(http.StatusNotFound, "not_found", fmt.Sprintf("no recipe found for %q", input.Item), nil)
		}
		return &struct {
			Body ItemResponse `json:"body"`
		}{Body: itemResponse(e.Catalog.Lookup(input.Item))}, nil
	})
}

func registerPlans(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID:   "compute-plan",
		Method:        http.MethodPost,
		Path:          "/plans",
		Summary:       "Compute a crafting plan",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body ComputePlanRequest `json:"body"`
	}) (*struct {
		Body PlanResponse `json:"body"`
	}, error) {
		if input.Body.Item == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "item is required", nil)
		}
		if input.Body.Quantity < 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "quantity must be positive", nil)
		}
		plan, err := cfg.Engine.ComputePlan(input.Body.Item, input.Body.Quantity)
		if err != nil {
			return nil, handleError(err)
		}
		actorID := actorIDFromContext(ctx)
		rec, err := app.SavePlan(ctx, cfg.Repo, plan, actorID, cfg.Now())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PlanResponse `json:"body"`
		}{Body: planResponse(rec)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-plans",
		Method:      http.MethodGet,
		Path:        "/plans",
		Summary:     "List saved plans",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" required:"false"`
	}) (*struct {
		Body []PlanResponse `json:"body"`
	}, error) {
		recs, err := cfg.Repo.ListPlans(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		out := []PlanResponse{}
		for _, rec := range recs {
			out = append(out, planResponse(rec))
		}
		return &struct {
			Body []PlanResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-plan",
		Method:      http.MethodGet,
		Path:        "/plans/{plan_id}",
		Summary:     "Show a saved plan",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PlanID string `path:"plan_id"`
	}) (*struct {
		Body PlanResponse `json:"body"`
	}, error) {
		rec, err := cfg.Repo.GetPlan(ctx, input.PlanID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PlanResponse `json:"body"`
		}{Body: planResponse(rec)}, nil
	})
}
