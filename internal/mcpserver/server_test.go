package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/drctl/drctl/internal/governance"
	"github.com/drctl/drctl/internal/models"
	"github.com/drctl/drctl/internal/repo"
	"github.com/drctl/drctl/internal/store"
	"github.com/drctl/drctl/internal/testutil"
)

func testServer(t *testing.T) (*Server, *repo.Context) {
	t.Helper()
	rc := testutil.TestRepo(t)
	return New(rc, "test", nil), rc
}

func seed(t *testing.T, rc *repo.Context, id string, status models.Status, ct models.ChangeType) {
	t.Helper()
	domain, err := models.DomainFromID(id)
	if err != nil {
		t.Fatal(err)
	}
	d := models.Decision{ID: id, Domain: domain, Status: status, ChangeType: ct, Version: "1.0"}
	body := "# " + id + "\n"
	if _, err := store.Save(rc, &d, &body); err != nil {
		t.Fatal(err)
	}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error
	switch name {
	case "list_decisions":
		result, err = srv.listDecisions(ctx, req)
	case "read_decision":
		result, err = srv.readDecision(ctx, req)
	case "validate_decisions":
		result, err = srv.validateDecisions(ctx, req)
	case "get_decision_contract":
		result, err = srv.getContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListDecisions_Filters(t *testing.T) {
	srv, rc := testServer(t)
	seed(t, rc, "DR--20240101--app--one", models.StatusDraft, models.ChangeCreation)
	seed(t, rc, "DR--20240102--app--two", models.StatusAccepted, models.ChangeCreation)
	seed(t, rc, "DR--20240103--ops--three", models.StatusAccepted, models.ChangeCreation)

	var all []DecisionSummary
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv, "list_decisions", nil))), &all); err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("all = %d", len(all))
	}

	var filtered []DecisionSummary
	res := callTool(t, srv, "list_decisions", map[string]interface{}{"status": "accepted", "domain": "app"})
	if err := json.Unmarshal([]byte(resultText(res)), &filtered); err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 || filtered[0].ID != "DR--20240102--app--two" || filtered[0].Path != "app/DR--20240102--app--two.md" {
		t.Errorf("filtered = %+v", filtered)
	}
}

func TestReadDecision(t *testing.T) {
	srv, rc := testServer(t)
	seed(t, rc, "DR--20240101--app--one", models.StatusDraft, models.ChangeCreation)

	res := callTool(t, srv, "read_decision", map[string]interface{}{"id": "DR--20240101--app--one"})
	if res.IsError {
		t.Fatalf("error: %s", resultText(res))
	}
	if text := resultText(res); !strings.HasPrefix(text, "---\n") || !strings.Contains(text, "# DR--20240101--app--one") {
		t.Errorf("text = %q", text)
	}

	res = callTool(t, srv, "read_decision", map[string]interface{}{"id": "DR--20240101--app--missing"})
	if !res.IsError || !strings.Contains(resultText(res), "not found") {
		t.Errorf("missing = %q", resultText(res))
	}

	res = callTool(t, srv, "read_decision", map[string]interface{}{})
	if !res.IsError {
		t.Error("expected error without id")
	}
}

func TestValidateDecisions(t *testing.T) {
	srv, rc := testServer(t)
	seed(t, rc, "DR--20240101--app--one", models.StatusDraft, models.ChangeCreation)
	if text := resultText(callTool(t, srv, "validate_decisions", nil)); text != "no issues in 1 records" {
		t.Errorf("clean = %q", text)
	}

	seed(t, rc, "DR--20240102--app--two", models.StatusSuperseded, models.ChangeSupersession)
	var issues []governance.Issue
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv, "validate_decisions", nil))), &issues); err != nil {
		t.Fatal(err)
	}
	if len(issues) != 1 || issues[0].Code != governance.CodeMissingSupersedeLink {
		t.Errorf("issues = %+v", issues)
	}
}

func TestContract(t *testing.T) {
	srv, _ := testServer(t)
	if text := resultText(callTool(t, srv, "get_decision_contract", nil)); !strings.Contains(text, "append-only") {
		t.Errorf("contract text = %q", text)
	}
	contents, err := srv.readContractResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource: %v %v", contents, err)
	}
}
