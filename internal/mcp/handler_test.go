package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/markmentum-portal/internal/common"
	"github.com/bobmcallan/markmentum-portal/internal/data"
	"github.com/bobmcallan/markmentum-portal/internal/report"
)

func testLogger() *common.Logger {
	return common.NewSilentLogger()
}

func testStore(t *testing.T) *data.Store {
	t.Helper()
	dir := t.TempDir()
	compass := "Date,Ticker,Ticker_name,Close,daily_Return,day_pr_low,day_pr_high,day_rr_ratio,model_score,model_score_delta\n" +
		"2026-01-22,SPX,S&P 500,5990,0.01,5950,6050,1.5,120,3\n" +
		"2026-01-23,SPX,S&P 500,6000.5,0.0123,5950,6050,1.5,120,3\n"
	if err := os.WriteFile(filepath.Join(dir, "qry_graph_data_73.csv"), []byte(compass), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := data.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func callTool(t *testing.T, h func(context.Context, mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error), args map[string]any) *mcpgo.CallToolResult {
	t.Helper()
	var req mcpgo.CallToolRequest
	req.Params.Arguments = args
	result, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

func resultText(t *testing.T, r *mcpgo.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("empty result")
	}
	return r.Content[0].(mcpgo.TextContent).Text
}

func TestTapeBiasTool(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"buy", map[string]any{"st": 0.01, "mt": 0.02, "lt": 0.03, "st_change": 0.001, "mt_change": 0.002}, "Buy"},
		{"sell", map[string]any{"st": 0.03, "mt": 0.02, "lt": 0.01, "st_change": -0.001, "mt_change": -0.002}, "Sell"},
		{"noise", map[string]any{"st": 0.01, "mt": 0.02, "lt": 0.03, "st_change": 0.0004, "mt_change": 0.002}, "Neutral"},
		{"missing", map[string]any{"st": 0.01}, "Insufficient data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resultText(t, callTool(t, TapeBiasToolHandler(), tt.args))
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestAsOfTool(t *testing.T) {
	h := AsOfToolHandler(testStore(t), testLogger())

	var got asOfResult
	text := resultText(t, callTool(t, h, map[string]any{"graph": 73}))
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("bad json %q: %v", text, err)
	}
	if got.AsOf != "1/23/2026" || got.Rows != 2 || !got.Found {
		t.Errorf("unexpected result %+v", got)
	}

	text = resultText(t, callTool(t, h, map[string]any{"file": "signal_box.csv"}))
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("bad json %q: %v", text, err)
	}
	if got.Found || got.Rows != 0 || got.AsOf != "" {
		t.Errorf("missing file should be empty, got %+v", got)
	}

	if r := callTool(t, h, map[string]any{"file": "../etc/passwd.csv"}); !r.IsError {
		t.Error("expected path traversal to be rejected")
	}
	if r := callTool(t, h, map[string]any{}); !r.IsError {
		t.Error("expected error without arguments")
	}
}

func TestModulesTool(t *testing.T) {
	registry := report.NewRegistry(nil, report.DefaultModules(nil, nil)...)
	h := ModulesToolHandler(testStore(t), registry, testLogger())

	var got []moduleInfo
	text := resultText(t, callTool(t, h, nil))
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("bad json %q: %v", text, err)
	}
	if len(got) != 7 {
		t.Fatalf("expected 7 modules, got %d", len(got))
	}
	if got[0].Key != "morning_compass" || !got[0].Default {
		t.Errorf("expected morning_compass first and default, got %+v", got[0])
	}
	if got[0].Preview != "Preview: Morning Compass – Daily: 1/23/2026" {
		t.Errorf("unexpected preview %q", got[0].Preview)
	}
	if got[6].Key != "vantage_point" || got[6].Default {
		t.Errorf("expected vantage_point last, got %+v", got[6])
	}
}

func TestHandler_RequiresMember(t *testing.T) {
	registry := report.NewRegistry(nil)
	h := NewHandler(testStore(t), registry, testLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if body["error"] != "unauthorized" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestHandler_ListsTools(t *testing.T) {
	registry := report.NewRegistry(nil)
	h := NewHandler(testStore(t), registry, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/mcp",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	req = req.WithContext(common.WithMember(req.Context(), &common.Member{ID: "mem_1"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	for _, name := range []string{"classify_tape_bias", "dataset_as_of", "list_report_modules", "get_version"} {
		if !strings.Contains(rec.Body.String(), name) {
			t.Errorf("tools/list missing %s", name)
		}
	}
}
