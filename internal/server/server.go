package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"reflect"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"stakeboard/internal/domain"
	"stakeboard/internal/engine"
)

// Config for the HTTP API handler.
type Config struct {
	Store    *engine.Store
	BasePath string
	Logger   *slog.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"task task-9 not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"id\":\"task-9\"}"`
}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

type output[T any] struct {
	Body T
}

type idPath struct {
	ID string `path:"id"`
}

// New returns an HTTP handler exposing the store.
func New(cfg Config) (http.Handler, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("server: store is required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// request validation is a client error, not a domain one
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(withLogging(logger))
	hcfg := huma.DefaultConfig("Stakeboard API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	st := cfg.Store
	registerDocs(router, basePath)
	registerHealth(group)
	registerState(group, st)
	registerActions(group, st)
	registerPeople(group, st)
	registerTasks(group, st)
	registerRequirements(group, st)
	registerActivities(group, st)
	registerUI(group, st)
	registerOpenAPI(router, api, basePath)

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

func notFound(kind, id string) huma.StatusError {
	return newAPIError(http.StatusNotFound, "not_found", fmt.Sprintf("%s %s not found", kind, id), map[string]any{"id": id})
}

func badRequest(msg string, details map[string]any) huma.StatusError {
	return newAPIError(http.StatusBadRequest, "bad_request", msg, details)
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var (
		once sync.Once
		doc  []byte
	)
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			doc, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(doc)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil || oas.Components == nil || oas.Components.Schemas == nil {
		return
	}
	errSchema := oas.Components.Schemas.Schema(reflect.TypeOf(apiError{}), true, "ApiError")
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {Schema: errSchema},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Stakeboard API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*output[map[string]string], error) {
		return &output[map[string]string]{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerState(api huma.API, st *engine.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "get-state",
		Method:      http.MethodGet,
		Path:        "/state",
		Summary:     "Current state tree",
	}, func(ctx context.Context, _ *struct{}) (*output[domain.State], error) {
		return &output[domain.State]{Body: st.State()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "load-state",
		Method:      http.MethodPut,
		Path:        "/state",
		Summary:     "Replace the state tree",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body domain.State
	}) (*output[domain.State], error) {
		next, _ := st.Dispatch(engine.LoadState{State: input.Body})
		return &output[domain.State]{Body: next}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reset-state",
		Method:      http.MethodPost,
		Path:        "/state/reset",
		Summary:     "Restore the sample dataset",
	}, func(ctx context.Context, _ *struct{}) (*output[domain.State], error) {
		next, _ := st.Dispatch(engine.ResetState{})
		return &output[domain.State]{Body: next}, nil
	})
}

func registerActions(api huma.API, st *engine.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "dispatch-action",
		Method:      http.MethodPost,
		Path:        "/actions",
		Summary:     "Dispatch an action envelope",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body ActionRequest
	}) (*output[ActionResponse], error) {
		env := engine.Envelope{Type: input.Body.Type}
		if input.Body.Payload != nil {
			raw, err := json.Marshal(input.Body.Payload)
			if err != nil {
				return nil, badRequest("invalid payload", map[string]any{"error": err.Error()})
			}
			env.Payload = raw
		}
		act, err := engine.Decode(env)
		if err != nil {
			return nil, badRequest(err.Error(), map[string]any{"type": input.Body.Type})
		}
		next, changed := st.Dispatch(act)
		return &output[ActionResponse]{Body: ActionResponse{Type: act.Type(), Changed: changed, State: next}}, nil
	})
}

func registerPeople(api huma.API, st *engine.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "list-people",
		Method:      http.MethodGet,
		Path:        "/people",
		Summary:     "List people",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Role domain.PersonRole `query:"role" enum:"stakeholder,executor"`
	}) (*output[PeopleResponse], error) {
		s := st.State()
		items := s.People
		if input.Role != "" {
			items = engine.PeopleByRole(s, input.Role)
		}
		return &output[PeopleResponse]{Body: PeopleResponse{Items: nonNil(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-person",
		Method:        http.MethodPost,
		Path:          "/people",
		Summary:       "Add a person",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreatePersonRequest
	}) (*output[domain.Person], error) {
		next, changed := st.Dispatch(input.Body.action())
		if !changed {
			return nil, badRequest("person_type is required", map[string]any{"field": "person_type"})
		}
		return &output[domain.Person]{Body: next.People[len(next.People)-1]}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-person",
		Method:      http.MethodGet,
		Path:        "/people/{id}",
		Summary:     "Get a person",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[domain.Person], error) {
		p, ok := st.FindPerson(input.ID)
		if !ok {
			return nil, notFound("person", input.ID)
		}
		return &output[domain.Person]{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-person",
		Method:      http.MethodPatch,
		Path:        "/people/{id}",
		Summary:     "Update a person",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body UpdatePersonRequest
	}) (*output[domain.Person], error) {
		next, _ := st.Dispatch(engine.UpdatePerson{ID: input.ID, Updates: input.Body.patch()})
		p, ok := engine.FindPerson(next, input.ID)
		if !ok {
			return nil, notFound("person", input.ID)
		}
		return &output[domain.Person]{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-person",
		Method:        http.MethodDelete,
		Path:          "/people/{id}",
		Summary:       "Remove a person, their requirements and their task assignments",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if _, changed := st.Dispatch(engine.DeletePerson{ID: input.ID}); !changed {
			return nil, notFound("person", input.ID)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "person-requirements",
		Method:      http.MethodGet,
		Path:        "/people/{id}/requirements",
		Summary:     "Requirements owned by a stakeholder",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[RequirementsResponse], error) {
		s := st.State()
		if _, ok := engine.FindPerson(s, input.ID); !ok {
			return nil, notFound("person", input.ID)
		}
		items := engine.RequirementsByStakeholder(s, input.ID)
		return &output[RequirementsResponse]{Body: RequirementsResponse{Items: nonNil(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "person-tasks",
		Method:      http.MethodGet,
		Path:        "/people/{id}/tasks",
		Summary:     "Tasks a person is attached to",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Role domain.PersonRole `query:"role" enum:"stakeholder,executor"`
	}) (*output[TasksResponse], error) {
		s := st.State()
		if _, ok := engine.FindPerson(s, input.ID); !ok {
			return nil, notFound("person", input.ID)
		}
		var items []domain.Task
		if input.Role == "" {
			items = engine.TasksInvolving(s, input.ID)
		} else {
			items = engine.TasksByPerson(s, input.ID, input.Role)
		}
		return &output[TasksResponse]{Body: TasksResponse{Items: nonNil(items)}}, nil
	})
}

func registerTasks(api huma.API, st *engine.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Status domain.TaskStatus `query:"status" enum:"backlog,todo,inProgress,review,done"`
	}) (*output[TasksResponse], error) {
		s := st.State()
		items := s.Tasks
		if input.Status != "" {
			items = engine.TasksByStatus(s)[input.Status]
		}
		return &output[TasksResponse]{Body: TasksResponse{Items: nonNil(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "task-board",
		Method:      http.MethodGet,
		Path:        "/board",
		Summary:     "Tasks grouped by status",
	}, func(ctx context.Context, _ *struct{}) (*output[map[domain.TaskStatus][]domain.Task], error) {
		return &output[map[domain.TaskStatus][]domain.Task]{Body: engine.TasksByStatus(st.State())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create a task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest
	}) (*output[domain.Task], error) {
		next, _ := st.Dispatch(input.Body.action())
		return &output[domain.Task]{Body: next.Tasks[len(next.Tasks)-1]}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get a task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[domain.Task], error) {
		t, ok := st.FindTask(input.ID)
		if !ok {
			return nil, notFound("task", input.ID)
		}
		return &output[domain.Task]{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update a task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body UpdateTaskRequest
	}) (*output[domain.Task], error) {
		next, changed := st.Dispatch(engine.UpdateTask{ID: input.ID, Updates: input.Body.patch()})
		if !changed {
			return nil, notFound("task", input.ID)
		}
		t, _ := engine.FindTask(next, input.ID)
		return &output[domain.Task]{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/move",
		Summary:     "Move a task to another board column",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body MoveTaskRequest
	}) (*output[domain.Task], error) {
		next, _ := st.Dispatch(engine.MoveTask{ID: input.ID, Status: input.Body.Status})
		t, ok := engine.FindTask(next, input.ID)
		if !ok {
			return nil, notFound("task", input.ID)
		}
		return &output[domain.Task]{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete a task",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if _, changed := st.Dispatch(engine.DeleteTask{ID: input.ID}); !changed {
			return nil, notFound("task", input.ID)
		}
		return &struct{}{}, nil
	})
}

func registerRequirements(api huma.API, st *engine.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "list-requirements",
		Method:      http.MethodGet,
		Path:        "/requirements",
		Summary:     "List requirements",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		StakeholderID string                   `query:"stakeholder_id"`
		Status        domain.RequirementStatus `query:"status" enum:"draft,pending,approved,inProgress,completed"`
	}) (*output[RequirementsResponse], error) {
		s := st.State()
		items := s.Requirements
		if input.StakeholderID != "" {
			items = engine.RequirementsByStakeholder(s, input.StakeholderID)
		}
		if input.Status != "" {
			var filtered []domain.Requirement
			for _, r := range items {
				if r.Status == input.Status {
					filtered = append(filtered, r)
				}
			}
			items = filtered
		}
		return &output[RequirementsResponse]{Body: RequirementsResponse{Items: nonNil(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-requirement",
		Method:        http.MethodPost,
		Path:          "/requirements",
		Summary:       "Create a requirement for a stakeholder",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateRequirementRequest
	}) (*output[domain.Requirement], error) {
		next, _, err := st.DispatchIf(func(s domain.State) error {
			owner, ok := engine.FindPerson(s, input.Body.StakeholderID)
			if !ok {
				return badRequest("unknown stakeholder", map[string]any{"stakeholder_id": input.Body.StakeholderID})
			}
			if !owner.HasRole(domain.RoleStakeholder) {
				return badRequest("person is not a stakeholder", map[string]any{"stakeholder_id": owner.ID})
			}
			return nil
		}, input.Body.action())
		if err != nil {
			return nil, err
		}
		return &output[domain.Requirement]{Body: next.Requirements[len(next.Requirements)-1]}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-requirement",
		Method:      http.MethodGet,
		Path:        "/requirements/{id}",
		Summary:     "Get a requirement",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[domain.Requirement], error) {
		r, ok := st.FindRequirement(input.ID)
		if !ok {
			return nil, notFound("requirement", input.ID)
		}
		return &output[domain.Requirement]{Body: r}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-requirement",
		Method:      http.MethodPatch,
		Path:        "/requirements/{id}",
		Summary:     "Update a requirement",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body UpdateRequirementRequest
	}) (*output[domain.Requirement], error) {
		next, changed := st.Dispatch(engine.UpdateRequirement{ID: input.ID, Updates: input.Body.patch()})
		if !changed {
			return nil, notFound("requirement", input.ID)
		}
		r, _ := engine.FindRequirement(next, input.ID)
		return &output[domain.Requirement]{Body: r}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-requirement",
		Method:        http.MethodDelete,
		Path:          "/requirements/{id}",
		Summary:       "Delete a requirement and unlink it from tasks",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if _, changed := st.Dispatch(engine.DeleteRequirement{ID: input.ID}); !changed {
			return nil, notFound("requirement", input.ID)
		}
		return &struct{}{}, nil
	})
}

func registerActivities(api huma.API, st *engine.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "list-activities",
		Method:      http.MethodGet,
		Path:        "/activities",
		Summary:     "Recent activity, newest first",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		EntityType domain.EntityType `query:"entity_type" enum:"task,person,requirement"`
		EntityID   string            `query:"entity_id"`
		Limit      int               `query:"limit" default:"50"`
	}) (*output[ActivitiesResponse], error) {
		items := engine.ActivitiesFor(st.State(), input.EntityType, input.EntityID, normalizeLimit(input.Limit))
		return &output[ActivitiesResponse]{Body: ActivitiesResponse{Items: nonNil(items)}}, nil
	})
}

func registerUI(api huma.API, st *engine.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "get-ui",
		Method:      http.MethodGet,
		Path:        "/ui",
		Summary:     "Active view and selection",
	}, func(ctx context.Context, _ *struct{}) (*output[UIResponse], error) {
		return &output[UIResponse]{Body: uiResponse(st.State())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-view",
		Method:      http.MethodPut,
		Path:        "/ui/view",
		Summary:     "Switch the active view",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body SetViewRequest
	}) (*output[UIResponse], error) {
		next, _ := st.Dispatch(engine.SetView{View: input.Body.View})
		return &output[UIResponse]{Body: uiResponse(next)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-selection",
		Method:      http.MethodPut,
		Path:        "/ui/selection",
		Summary:     "Select a person and/or task",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body SelectionRequest
	}) (*output[UIResponse], error) {
		var actions []engine.Action
		if input.Body.PersonID != nil {
			actions = append(actions, engine.SelectPerson{ID: *input.Body.PersonID})
		}
		if input.Body.TaskID != nil {
			actions = append(actions, engine.SelectTask{ID: *input.Body.TaskID})
		}
		next, _ := st.DispatchAll(actions...)
		return &output[UIResponse]{Body: uiResponse(next)}, nil
	})
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
