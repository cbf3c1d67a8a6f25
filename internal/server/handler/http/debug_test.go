package http_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/atinyakov/accountvault/internal/columns"
	"github.com/atinyakov/accountvault/internal/mirror"
	"github.com/sebdah/goldie/v2"
)

func TestDebugDB(t *testing.T) {
	rec := do(t, newServer(&fakeVault{}), http.MethodGet, "/api/debug/db", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if body := rec.Body.String(); body != "{\"ok\":true}\n" {
		t.Errorf("body = %q", body)
	}
}

func TestDebugDB_Down(t *testing.T) {
	rec := do(t, newServer(&fakeVault{pingErr: errors.New("dial tcp: refused")}), http.MethodGet, "/api/debug/db", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d; want 503", rec.Code)
	}
	if body := rec.Body.String(); body != "{\"ok\":false}\n" {
		t.Errorf("body = %q", body)
	}
}

func TestDebugSheets_Golden(t *testing.T) {
	fake := &fakeVault{status: mirror.Status{
		SheetName:      "Accounts",
		HasCredentials: true,
		OK:             true,
		ServiceAccount: "vault@example.iam.gserviceaccount.com",
		WorksheetTitle: "Sheet1",
		SpreadsheetID:  "1AbCdEfGhIjKlMnOpQrStUvWxYz0123456789",
		Columns:        columns.ParseSpec("id|ID,title,platform|Platform"),
		TimeZone:       "Asia/Ho_Chi_Minh",
		TimeFormat:     "%d/%m/%Y %H:%M",
	}}

	rec := do(t, newServer(fake), http.MethodGet, "/api/debug/sheets", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "sheets_status", rec.Body.Bytes())
}

func TestDebugSheets_Unresolved(t *testing.T) {
	fake := &fakeVault{status: mirror.Status{
		SheetName:  "Accounts",
		Error:      "MISSING_CREDENTIALS",
		Columns:    columns.ParseSpec("id"),
		TimeZone:   "UTC",
		TimeFormat: columns.DefaultTimeFormat,
	}}

	rec := do(t, newServer(fake), http.MethodGet, "/api/debug/sheets", "")

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "sheets_status_unresolved", rec.Body.Bytes())
}

func TestDebugSheetsPing(t *testing.T) {
	fake := &fakeVault{probe: mirror.ProbeResult{OK: false, Error: "NOT_FOUND name_or_id='Accounts'", SheetName: "Accounts"}}

	rec := do(t, newServer(fake), http.MethodPost, "/api/debug/sheets/ping", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	want := "{\"ok\":false,\"error\":\"NOT_FOUND name_or_id='Accounts'\",\"sheet_name\":\"Accounts\"}\n"
	if body := rec.Body.String(); body != want {
		t.Errorf("body = %q; want %q", body, want)
	}
}
