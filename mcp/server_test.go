package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lvillar/invoicepdf"
	"github.com/lvillar/invoicepdf/internal/fixture"
)

func newTestServer() *Server {
	s := NewServer(WithIO(nil, nil))
	RegisterDefaultTools(s, invoicepdf.New(invoicepdf.WithClock(fixture.Clock)))
	RegisterDefaultResources(s)
	return s
}

func sendRequest(t *testing.T, s *Server, method string, id int, params any) jsonrpcResponse {
	t.Helper()

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		req["params"] = params
	}

	reqBytes, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	reqBytes = append(reqBytes, '\n')

	var output bytes.Buffer
	s.input = bytes.NewReader(reqBytes)
	s.output = &output

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(output.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling response %q: %v", output.String(), err)
	}
	return resp
}

// callTool calls name and returns the decoded tool result.
func callTool(t *testing.T, s *Server, name string, args map[string]any) ToolResult {
	t.Helper()
	resp := sendRequest(t, s, "tools/call", 9, map[string]any{"name": name, "arguments": args})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	raw, _ := json.Marshal(resp.Result)
	var res ToolResult
	if err := json.Unmarshal(raw, &res); err != nil {
		t.Fatalf("decoding tool result %s: %v", raw, err)
	}
	return res
}

func rawJSON(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decoding fixture: %v", err)
	}
	return m
}

func contextArg(t *testing.T, n int) map[string]any {
	t.Helper()
	data, err := json.Marshal(fixture.Context(n, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	return rawJSON(t, data)
}

func TestServerInitialize(t *testing.T) {
	s := newTestServer()

	resp := sendRequest(t, s, "initialize", 1, map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "test", "version": "1.0"},
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatal("result is not a map")
	}
	if result["protocolVersion"] != ProtocolVersion {
		t.Fatalf("unexpected protocol version: %v", result["protocolVersion"])
	}
	serverInfo, ok := result["serverInfo"].(map[string]any)
	if !ok {
		t.Fatal("missing serverInfo")
	}
	if serverInfo["name"] != "invoicepdf-mcp" {
		t.Fatalf("unexpected server name: %v", serverInfo["name"])
	}
}

func TestServerToolsList(t *testing.T) {
	resp := sendRequest(t, newTestServer(), "tools/list", 2, nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	tools := resp.Result.(map[string]any)["tools"].([]any)
	var names []string
	for _, tool := range tools {
		tm := tool.(map[string]any)
		names = append(names, tm["name"].(string))
		if _, ok := tm["inputSchema"]; !ok {
			t.Errorf("tool %v has no input schema", tm["name"])
		}
	}
	want := "preview_template,render_document,resolve_rows,validate_template"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("tools = %s, want %s", got, want)
	}
}

func TestServerResourcesList(t *testing.T) {
	resp := sendRequest(t, newTestServer(), "resources/list", 3, nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	resources := resp.Result.(map[string]any)["resources"].([]any)
	if len(resources) != 3 {
		t.Fatalf("expected 3 resources, got %d", len(resources))
	}
}

func TestServerReadResources(t *testing.T) {
	s := newTestServer()
	for uri, want := range map[string]string{
		"invoicepdf://page-sizes":    `"a4"`,
		"invoicepdf://functions":     `"formatMoney"`,
		"invoicepdf://element-kinds": `"pageNumber"`,
	} {
		resp := sendRequest(t, s, "resources/read", 4, map[string]any{"uri": uri})
		if resp.Error != nil {
			t.Fatalf("%s: unexpected error: %v", uri, resp.Error.Message)
		}
		raw, _ := json.Marshal(resp.Result)
		var result struct {
			Contents []ResourceContent `json:"contents"`
		}
		if err := json.Unmarshal(raw, &result); err != nil || len(result.Contents) != 1 {
			t.Fatalf("%s: bad contents %s", uri, raw)
		}
		if !strings.Contains(result.Contents[0].Text, want) {
			t.Errorf("%s: %q not found in %s", uri, want, result.Contents[0].Text)
		}
	}

	resp := sendRequest(t, s, "resources/read", 5, map[string]any{"uri": "invoicepdf://nope"})
	if resp.Error == nil {
		t.Fatal("expected error for unknown resource")
	}
}

func TestServerPing(t *testing.T) {
	resp := sendRequest(t, newTestServer(), "ping", 4, nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
}

func TestServerUnknownMethod(t *testing.T) {
	resp := sendRequest(t, newTestServer(), "nonexistent/method", 5, nil)
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected error code -32601, got %d", resp.Error.Code)
	}
}

func TestServerUnknownTool(t *testing.T) {
	resp := sendRequest(t, newTestServer(), "tools/call", 6, map[string]any{
		"name":      "nonexistent_tool",
		"arguments": map[string]any{},
	})
	if resp.Error == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestRenderDocumentTool(t *testing.T) {
	res := callTool(t, newTestServer(), "render_document", map[string]any{
		"template": rawJSON(t, fixture.FullTemplate("")),
		"data":     contextArg(t, 3),
	})
	if res.IsError {
		t.Fatalf("tool failed: %+v", res)
	}
	if len(res.Content) != 2 {
		t.Fatalf("expected summary and PDF blocks, got %d", len(res.Content))
	}
	if !strings.Contains(res.Content[0].Text, "primary path: 1 page(s)") {
		t.Fatalf("unexpected summary: %s", res.Content[0].Text)
	}
	pdf, err := base64.StdEncoding.DecodeString(res.Content[1].Data)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatal("payload is not a PDF")
	}
}

func TestRenderDocumentToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pdf")
	res := callTool(t, newTestServer(), "render_document", map[string]any{
		"template":   map[string]any{"html": "<h1>{{ document.number }}</h1>"},
		"data":       contextArg(t, 1),
		"outputPath": path,
	})
	if res.IsError {
		t.Fatalf("tool failed: %+v", res)
	}
	if !strings.Contains(res.Content[0].Text, "fallback path") {
		t.Fatalf("legacy template should use the fallback: %s", res.Content[0].Text)
	}
	pages, err := fixture.PageCount(mustRead(t, path))
	if err != nil || pages != 1 {
		t.Fatalf("pages = %d, err = %v", pages, err)
	}
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestRenderDocumentMissingData(t *testing.T) {
	res := callTool(t, newTestServer(), "render_document", map[string]any{
		"template": rawJSON(t, fixture.FullTemplate("")),
	})
	if !res.IsError || !strings.Contains(res.Content[0].Text, "missing 'data'") {
		t.Fatalf("expected missing data error, got %+v", res)
	}
}

func TestPreviewTemplateTool(t *testing.T) {
	res := callTool(t, newTestServer(), "preview_template", map[string]any{
		"template": rawJSON(t, fixture.TableTemplate("combined_items", 120)),
		"data":     contextArg(t, 2),
	})
	if res.IsError {
		t.Fatalf("tool failed: %+v", res)
	}
	if !strings.Contains(res.Content[0].Text, "INV-2024-0042") {
		t.Fatalf("preview lacks document number: %s", res.Content[0].Text)
	}

	res = callTool(t, newTestServer(), "preview_template", map[string]any{
		"template": map[string]any{"elements": []any{map[string]any{"type": "chart"}}},
	})
	if !res.IsError {
		t.Fatal("strict preview should reject unknown kinds")
	}
}

func TestValidateTemplateTool(t *testing.T) {
	s := newTestServer()
	tpl := map[string]any{"elements": []any{
		map[string]any{"type": "text"},
		map[string]any{"type": "chart"},
	}}

	res := callTool(t, s, "validate_template", map[string]any{"template": tpl})
	if !res.IsError {
		t.Fatal("expected invalid result")
	}
	var v validation
	if err := json.Unmarshal([]byte(res.Content[0].Text), &v); err != nil {
		t.Fatal(err)
	}
	if v.Valid || len(v.Problems) != 2 {
		t.Fatalf("unexpected validation: %+v", v)
	}

	res = callTool(t, s, "validate_template", map[string]any{"template": rawJSON(t, fixture.FullTemplate(""))})
	if res.IsError {
		t.Fatalf("valid template rejected: %s", res.Content[0].Text)
	}
}

func TestResolveRowsTool(t *testing.T) {
	res := callTool(t, newTestServer(), "resolve_rows", map[string]any{
		"source": "combined_items",
		"data":   contextArg(t, 2),
	})
	if res.IsError {
		t.Fatalf("tool failed: %+v", res)
	}
	var rs []map[string]any
	if err := json.Unmarshal([]byte(res.Content[0].Text), &rs); err != nil {
		t.Fatal(err)
	}
	if len(rs) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rs))
	}
	if rs[3]["source_kind"] != "expense" {
		t.Fatalf("expenses come last: %v", rs[3])
	}

	res = callTool(t, newTestServer(), "resolve_rows", map[string]any{"source": "timesheet", "data": contextArg(t, 1)})
	if !res.IsError {
		t.Fatal("expected unknown source error")
	}
}

func TestServerMultipleRequests(t *testing.T) {
	requests := []string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":4,"method":"ping"}`,
	}

	input := strings.Join(requests, "\n") + "\n"
	var output bytes.Buffer

	s := NewServer(WithIO(strings.NewReader(input), &output))
	RegisterDefaultTools(s, invoicepdf.New())
	RegisterDefaultResources(s)

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 responses, got %d: %s", len(lines), output.String())
	}
	for i, line := range lines {
		var resp jsonrpcResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("response %d: unmarshal error: %v\nline: %s", i, err, line)
		}
		if resp.Error != nil {
			t.Errorf("response %d: unexpected error: %s", i, resp.Error.Message)
		}
	}
}

func TestServerParseError(t *testing.T) {
	var output bytes.Buffer
	s := NewServer(WithIO(strings.NewReader("{not json\n"), &output))
	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	var resp jsonrpcResponse
	if err := json.Unmarshal(output.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != codeParseError {
		t.Fatalf("expected parse error, got %+v", resp)
	}
}

func TestToolAddTool(t *testing.T) {
	s := NewServer(WithIO(nil, nil))
	s.AddTool(Tool{
		Name:        "custom_tool",
		Description: "A custom test tool",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Handler: func(_ context.Context, args json.RawMessage) (ToolResult, error) {
			return TextResult("custom result " + string(args)), nil
		},
	})

	resp := sendRequest(t, s, "tools/call", 1, map[string]any{"name": "custom_tool"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	resultBytes, _ := json.Marshal(resp.Result)
	if !strings.Contains(string(resultBytes), "custom result {}") {
		t.Fatalf("unexpected result: %s", string(resultBytes))
	}
}
