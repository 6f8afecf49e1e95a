package elasticsearch

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmrzaf/mockagen/internal/domain"
)

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping due to restricted socket sandbox: %v", err)
	}
	ts := httptest.NewUnstartedServer(h)
	ts.Listener = ln
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

func eventsTable() *domain.Table {
	return &domain.Table{Name: "events", TargetTable: "Events", Columns: []domain.Column{
		{Name: "event_id", Type: domain.ColumnTypeUUID},
		{Name: "occurred_on", Type: domain.ColumnTypeDate},
	}}
}

func TestTarget_BasicFlow(t *testing.T) {
	var sawAuth bool
	ts := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); ok && user == "elastic" && pass == "secret" {
			sawAuth = true
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/":
			_, _ = w.Write([]byte(`{"cluster_name":"dev","version":{"number":"8.12.0"}}`))
		case r.Method == http.MethodPut && r.URL.Path == "/events":
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), `"occurred_on":{"type":"date"}`) {
				t.Errorf("index mapping missing date field: %s", body)
			}
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"type":"resource_already_exists_exception"}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/events/_delete_by_query":
			if r.URL.Query().Get("refresh") != "true" {
				t.Errorf("expected refresh on delete_by_query, got %q", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{"deleted":1}`))
		case r.Method == http.MethodPost && r.URL.Path == "/_bulk":
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), `"occurred_on":"2024-02-29"`) || !strings.Contains(string(body), `"_index":"events"`) {
				t.Errorf("unexpected bulk payload: %s", body)
			}
			_, _ = w.Write([]byte(`{"errors":false,"items":[{"index":{"status":201}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	dsn := strings.Replace(ts.URL, "http://", "http://elastic:secret@", 1)
	tgt := New(dsn)
	if err := tgt.Connect(); err != nil {
		t.Fatal(err)
	}
	defer tgt.Close()

	table := eventsTable()
	if err := tgt.CreateTableIfNotExists(table); err != nil {
		t.Fatalf("existing index should not fail: %v", err)
	}
	row := []domain.Value{domain.StringValue("e1"), domain.DateValue(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC))}
	if err := tgt.InsertBatch(table.Destination(), table.ColumnNames(), [][]domain.Value{row}); err != nil {
		t.Fatal(err)
	}
	if err := tgt.TruncateTable(table.Destination()); err != nil {
		t.Fatal(err)
	}
	if !sawAuth {
		t.Fatal("expected basic auth from DSN credentials")
	}
	if ver, err := ServerVersion(dsn); err != nil || ver != "8.12.0" {
		t.Fatalf("unexpected version result ver=%q err=%v", ver, err)
	}
}

func TestTarget_BulkItemErrors(t *testing.T) {
	ts := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":true,"items":[
			{"index":{"status":201}},
			{"index":{"status":400,"error":{"type":"mapper_parsing_exception","reason":"failed to parse field [occurred_on]"}}}
		]}`))
	})

	tgt := New(ts.URL)
	rows := [][]domain.Value{
		{domain.StringValue("e1"), domain.StringValue("2024-01-01")},
		{domain.StringValue("e2"), domain.StringValue("not a date")},
	}
	err := tgt.InsertBatch("events", []string{"event_id", "occurred_on"}, rows)
	if err == nil {
		t.Fatal("expected bulk error")
	}
	if !strings.Contains(err.Error(), "1 of 2") || !strings.Contains(err.Error(), "document 1: mapper_parsing_exception") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_NormalizesDSN(t *testing.T) {
	cases := map[string]string{
		"":                            defaultURL,
		"localhost:9200/":             "http://localhost:9200",
		"https://u:p@es.internal:443": "https://es.internal:443",
	}
	for dsn, want := range cases {
		if got := New(dsn).baseURL; got != want {
			t.Errorf("New(%q).baseURL = %q, want %q", dsn, got, want)
		}
	}
}
