package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"craftplan/internal/catalog"
	"craftplan/internal/db"
	"craftplan/internal/domain"
	"craftplan/internal/engine"
	"craftplan/internal/migrate"
	"craftplan/internal/repo"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Close() { s.close() }

func testRules() []domain.AcquisitionRule {
	return []domain.AcquisitionRule{
		{Item: "Steel Longsword", Method: domain.MethodCraft, Materials: []domain.Material{
			{Quantity: 4, Item: "Iron Ingot"}, {Quantity: 2, Item: "Leather Wrap"},
		}, Cost: 50, Source: "Forge", Profession: "Blacksmithing", SkillTier: 3},
		{Item: "Iron Ingot", Method: domain.MethodPurchase, Cost: 10, Source: "Smelter Vendor", Profession: "Smelting", SkillTier: 1},
		{Item: "Leather Wrap", Method: domain.MethodCraft, Materials: []domain.Material{{Quantity: 1, Item: "Leather"}}, Cost: 5, Source: "Tannery", Profession: "Leatherworking", SkillTier: 1},
		{Item: "Ouroboros Charm", Method: domain.MethodCraft, Materials: []domain.Material{{Quantity: 1, Item: "Ouroboros Charm"}}, Cost: 1, Source: "Altar", Profession: "Enchanting", SkillTier: 5},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cat, err := catalog.New(testRules())
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	handler, err := New(Config{
		Engine:   engine.New(cat),
		Repo:     repo.Repo{DB: conn},
		BasePath: "/v0",
		Auth:     AuthConfig{JWTSecret: testSecret},
		Now:      func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: subject})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = bytes.NewReader(nil)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func TestHealthNeedsNoAuth(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestUnauthenticatedRejected(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/items", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/items", "not-a-jwt", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", resp.StatusCode)
	}
}

func TestListAndSearchItems(t *testing.T) {
	ts := newTestServer(t)
	token := signToken(t, "tester")
	resp, body := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/items", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var items []ItemResponse
	if err := json.Unmarshal(body, &items); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}

	resp, body = doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/items?q=iron", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &items); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(items) != 1 || items[0].Item != "Iron Ingot" {
		t.Fatalf("expected Iron Ingot match, got %+v", items)
	}
}

func TestGetItemNotFound(t *testing.T) {
	ts := newTestServer(t)
	token := signToken(t, "tester")
	resp, _ := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/items/Nonexistent", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestComputeAndFetchPlan(t *testing.T) {
	ts := newTestServer(t)
	token := signToken(t, "tester")
	resp, body := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/plans", token, ComputePlanRequest{Item: "Steel Longsword", Quantity: 1})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	var created PlanResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created.TotalCost != 100 {
		t.Fatalf("expected total cost 100, got %d", created.TotalCost)
	}
	if created.Plan.RawMaterials["Leather"] != 2 {
		t.Fatalf("expected 2 Leather, got %+v", created.Plan.RawMaterials)
	}

	resp, body = doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/plans/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var fetched PlanResponse
	if err := json.Unmarshal(body, &fetched); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fetched.ID != created.ID || fetched.Plan.TotalCost != 100 {
		t.Fatalf("fetched plan differs: %+v", fetched)
	}

	resp, body = doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/plans", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var plans []PlanResponse
	if err := json.Unmarshal(body, &plans); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("expected 1 saved plan, got %d", len(plans))
	}
}

func TestComputePlanCycleRejected(t *testing.T) {
	ts := newTestServer(t)
	token := signToken(t, "tester")
	resp, body := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/plans", token, ComputePlanRequest{Item: "Ouroboros Charm"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.StatusCode, body)
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "cycle_detected" {
		t.Fatalf("expected cycle_detected, got %+v", envelope.Error)
	}
}

func TestComputePlanBadRequest(t *testing.T) {
	ts := newTestServer(t)
	token := signToken(t, "tester")
	resp, _ := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/plans", token, ComputePlanRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
