package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/emankhadim/healthcare-etl-pipeline/internal/audit"
	"github.com/emankhadim/healthcare-etl-pipeline/internal/quality"
)

// seedOutcomes writes a small finished run into dir.
func seedOutcomes(t *testing.T, dir string) {
	t.Helper()
	logger, err := audit.NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer logger.Close()

	outcomes := []quality.Outcome{
		{
			Entity:   quality.EntityPatient,
			Key:      "P-0001",
			Source:   quality.SourceRef{File: "patients.csv", Line: 2},
			Decision: quality.DecisionAccepted,
		},
		{
			Entity:   quality.EntityPatient,
			Key:      "P-0002",
			Source:   quality.SourceRef{File: "patients.csv", Line: 3},
			Decision: quality.DecisionRejected,
			Flags:    []quality.QAFlag{{Code: quality.FlagMissingField, Detail: "patient_id"}},
		},
		{
			Entity:   quality.EntityEncounter,
			Key:      "ENC-000001",
			Source:   quality.SourceRef{File: "encounters.csv", Line: 2},
			Decision: quality.DecisionAccepted,
		},
	}
	for _, o := range outcomes {
		if err := logger.Log(context.Background(), o); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}
}

func testServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	seedOutcomes(t, dir)
	return NewServer(dir, nil)
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := doGet(t, testServer(t), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
}

func TestSummary(t *testing.T) {
	rec := doGet(t, testServer(t), "/api/quality/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Entities []audit.EntitySummary `json:"entities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Entities) != 2 {
		t.Fatalf("entities = %d, want 2", len(body.Entities))
	}
	if body.Entities[0].Entity != quality.EntityPatient || body.Entities[0].Total != 2 {
		t.Errorf("patient summary = %+v", body.Entities[0])
	}
}

func TestOutcomes(t *testing.T) {
	rec := doGet(t, testServer(t), "/api/quality/outcomes/patient")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Entity   string            `json:"entity"`
		Count    int               `json:"count"`
		Outcomes []quality.Outcome `json:"outcomes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Count != 2 || len(body.Outcomes) != 2 {
		t.Errorf("count = %d, outcomes = %d, want 2 each", body.Count, len(body.Outcomes))
	}
}

func TestOutcomes_DecisionFilter(t *testing.T) {
	rec := doGet(t, testServer(t), "/api/quality/outcomes/patient?decision=rejected")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Outcomes []quality.Outcome `json:"outcomes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Outcomes) != 1 || body.Outcomes[0].Key != "P-0002" {
		t.Errorf("outcomes = %+v, want only the rejected record", body.Outcomes)
	}
}

func TestOutcomes_Limit(t *testing.T) {
	rec := doGet(t, testServer(t), "/api/quality/outcomes/patient?limit=1")
	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}
}

func TestOutcomes_OffsetPages(t *testing.T) {
	s := testServer(t)

	rec := doGet(t, s, "/api/quality/outcomes/patient?limit=1&offset=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Count    int               `json:"count"`
		Offset   int               `json:"offset"`
		Outcomes []quality.Outcome `json:"outcomes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Offset != 1 {
		t.Errorf("offset = %d, want 1", body.Offset)
	}
	if body.Count != 1 || len(body.Outcomes) != 1 || body.Outcomes[0].Key != "P-0002" {
		t.Errorf("outcomes = %+v, want the second seeded patient", body.Outcomes)
	}

	// Past the end of the log the page is empty, not an error.
	rec = doGet(t, s, "/api/quality/outcomes/patient?offset=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 past the end", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Count != 0 {
		t.Errorf("count = %d, want 0 past the end", body.Count)
	}
}

func TestOutcomes_BadRequests(t *testing.T) {
	s := testServer(t)

	if rec := doGet(t, s, "/api/quality/outcomes/starship"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown entity status = %d, want 404", rec.Code)
	}
	if rec := doGet(t, s, "/api/quality/outcomes/patient?decision=maybe"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad decision status = %d, want 400", rec.Code)
	}
	if rec := doGet(t, s, "/api/quality/outcomes/patient?limit=zero"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
	if rec := doGet(t, s, "/api/quality/outcomes/patient?offset=-1"); rec.Code != http.StatusBadRequest {
		t.Errorf("negative offset status = %d, want 400", rec.Code)
	}
}

func TestOutcomes_EmptyRun(t *testing.T) {
	s := NewServer(t.TempDir(), nil)
	rec := doGet(t, s, "/api/quality/outcomes/patient")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for an empty run", rec.Code)
	}
}

func TestWarehouseCounts_Unconfigured(t *testing.T) {
	rec := doGet(t, testServer(t), "/api/warehouse/counts")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 without a database", rec.Code)
	}
}
