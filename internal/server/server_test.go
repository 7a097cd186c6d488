package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"stakeboard/internal/domain"
	"stakeboard/internal/engine"
	"stakeboard/internal/events"
)

type testServer struct {
	URL    string
	Store  *engine.Store
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	n := 0
	e := engine.Engine{
		Events: events.Writer{
			Now: func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
			NewID: func() string {
				n++
				return fmt.Sprintf("id-%d", n)
			},
		},
		Seed: engine.SampleState,
	}
	store := engine.NewStore(e, engine.SampleState())
	handler, err := New(Config{Store: store, BasePath: "/v0", Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Store:  store,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func decodeError(t *testing.T, data []byte) apiErrorBody {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, string(data))
	}
	return env.Error
}

func TestHealthAndState(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/health", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/state", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("state status %d: %s", res.StatusCode, string(data))
	}
	var s domain.State
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if len(s.People) != 4 || len(s.Tasks) != 5 || len(s.Requirements) != 3 {
		t.Fatalf("unexpected sample sizes: %d people, %d tasks, %d requirements", len(s.People), len(s.Tasks), len(s.Requirements))
	}
}

func TestCreateAndMoveTask(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks", map[string]any{
		"title":        "Draft rollout plan",
		"executor_ids": []string{"person-2"},
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task status %d: %s", res.StatusCode, string(data))
	}
	var created domain.Task
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if created.ID != "id-1" || created.Status != domain.TaskBacklog || created.Priority != domain.PriorityMedium {
		t.Fatalf("unexpected task: %+v", created)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks/"+created.ID+"/move", map[string]any{"status": "review"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("move status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks?status=review", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	var list TasksResponse
	_ = json.Unmarshal(data, &list)
	found := false
	for _, task := range list.Items {
		if task.ID == created.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("moved task missing from review column: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/activities?entity_id="+created.ID, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("activities status %d: %s", res.StatusCode, string(data))
	}
	var acts ActivitiesResponse
	_ = json.Unmarshal(data, &acts)
	if len(acts.Items) != 2 || acts.Items[0].Type != domain.ActivityStatusChanged || acts.Items[1].Type != domain.ActivityCreated {
		t.Fatalf("unexpected activity trail: %+v", acts.Items)
	}
}

func TestUnknownIDsReturnNotFound(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	before := srv.Store.State()

	cases := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/v0/tasks/nope", nil},
		{http.MethodPatch, "/v0/tasks/nope", map[string]any{"title": "x"}},
		{http.MethodPost, "/v0/tasks/nope/move", map[string]any{"status": "done"}},
		{http.MethodDelete, "/v0/tasks/nope", nil},
		{http.MethodPatch, "/v0/people/nope", map[string]any{"name": "x"}},
		{http.MethodDelete, "/v0/people/nope", nil},
		{http.MethodGet, "/v0/people/nope/requirements", nil},
		{http.MethodPatch, "/v0/requirements/nope", map[string]any{"notes": "x"}},
		{http.MethodDelete, "/v0/requirements/nope", nil},
	}
	for _, tc := range cases {
		res, data := doJSON(t, client, tc.method, srv.URL+tc.path, tc.body)
		if res.StatusCode != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %d %s", tc.method, tc.path, res.StatusCode, string(data))
		}
		if e := decodeError(t, data); e.Code != "not_found" {
			t.Fatalf("%s %s: expected not_found code, got %+v", tc.method, tc.path, e)
		}
	}
	if after := srv.Store.State(); len(after.Activities) != len(before.Activities) {
		t.Fatalf("no-op requests must not record activity")
	}
}

func TestDeletePersonCascades(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodDelete, srv.URL+"/v0/people/person-1", nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/requirements?stakeholder_id=person-1", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list requirements status %d: %s", res.StatusCode, string(data))
	}
	var reqs RequirementsResponse
	_ = json.Unmarshal(data, &reqs)
	if len(reqs.Items) != 0 {
		t.Fatalf("expected owned requirements removed, got %+v", reqs.Items)
	}
	for _, task := range srv.Store.State().Tasks {
		for _, id := range task.StakeholderIDs {
			if id == "person-1" {
				t.Fatalf("task %s still references deleted person", task.ID)
			}
		}
	}
}

func TestRequirementOwnership(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/requirements", map[string]any{
		"title":          "Export to CSV",
		"stakeholder_id": "person-2",
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for executor-only owner, got %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/requirements", map[string]any{
		"title":          "Export to CSV",
		"stakeholder_id": "person-3",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create requirement status %d: %s", res.StatusCode, string(data))
	}
	var created domain.Requirement
	_ = json.Unmarshal(data, &created)
	if created.Status != domain.RequirementDraft {
		t.Fatalf("expected draft default, got %s", created.Status)
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/requirements/"+created.ID, map[string]any{"status": "approved"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update requirement status %d: %s", res.StatusCode, string(data))
	}
	if top := srv.Store.State().Activities[0]; top.Type != domain.ActivityStatusChanged || top.EntityID != created.ID {
		t.Fatalf("expected status_changed activity, got %+v", top)
	}
}

func TestValidationErrors(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks?status=archived", nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d %s", res.StatusCode, string(data))
	}
	if e := decodeError(t, data); e.Code != "bad_request" {
		t.Fatalf("expected bad_request, got %+v", e)
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/people", map[string]any{
		"name":        "Nobody",
		"person_type": []string{},
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty roles, got %d %s", res.StatusCode, string(data))
	}
}

func TestActionEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/actions", map[string]any{
		"type":    "SET_VIEW",
		"payload": map[string]any{"view": "people"},
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("action status %d: %s", res.StatusCode, string(data))
	}
	var out ActionResponse
	_ = json.Unmarshal(data, &out)
	if !out.Changed || out.State.ActiveView != domain.ViewPeople {
		t.Fatalf("unexpected action result: changed=%v view=%s", out.Changed, out.State.ActiveView)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/actions", map[string]any{"type": "MOVE_TASK"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing payload, got %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/actions", map[string]any{"type": "RESET_STATE"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("reset status %d: %s", res.StatusCode, string(data))
	}
}

func TestSelection(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPut, srv.URL+"/v0/ui/selection", map[string]any{"task_id": "task-2", "person_id": "person-3"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("selection status %d: %s", res.StatusCode, string(data))
	}
	var ui UIResponse
	_ = json.Unmarshal(data, &ui)
	if ui.SelectedTaskID != "task-2" || ui.SelectedPersonID != "person-3" {
		t.Fatalf("unexpected selection: %+v", ui)
	}

	doJSON(t, client, http.MethodDelete, srv.URL+"/v0/tasks/task-2", nil)
	if got := srv.Store.State().SelectedTaskID; got != "" {
		t.Fatalf("deleting the selected task should clear the selection, got %q", got)
	}
}

func TestOpenAPIServed(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/openapi.json", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("openapi status %d", res.StatusCode)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("openapi is not json: %v", err)
	}
	if _, ok := doc["paths"]; !ok {
		t.Fatalf("openapi document has no paths")
	}
}

func TestOpenAPIConcurrentFetches(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	var wg sync.WaitGroup
	bodies := make([]string, 8)
	for i := range bodies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v0/openapi.json", nil)
			res, err := client.Do(req)
			if err != nil {
				return
			}
			defer res.Body.Close()
			data, _ := io.ReadAll(res.Body)
			bodies[i] = string(data)
		}(i)
	}
	wg.Wait()
	for i, b := range bodies {
		if b == "" || b != bodies[0] {
			t.Fatalf("fetch %d returned a different document", i)
		}
	}
}
