package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qrledger/qrledger/server/internal/api"
	"github.com/qrledger/qrledger/server/internal/generate"
	"github.com/qrledger/qrledger/server/internal/store"
)

// --- test helpers -----------------------------------------------------------

// textEncoder writes the URL as the image body so tests can read it back.
type textEncoder struct{ err error }

func (e textEncoder) Encode(_ context.Context, content, path string) error {
	if e.err != nil {
		return e.err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

type fixture struct {
	h        http.Handler
	st       *store.Store
	imageDir string
}

func newFixture(t *testing.T, seed string) *fixture {
	return newFixtureWithEncoder(t, seed, textEncoder{})
}

func newFixtureWithEncoder(t *testing.T, seed string, enc textEncoder) *fixture {
	t.Helper()
	dir := t.TempDir()
	st := store.New(filepath.Join(dir, "BD.txt"))
	if seed != "" {
		if err := os.WriteFile(st.Path(), []byte(seed), 0o644); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	imageDir := filepath.Join(dir, "image")
	gen := generate.New(st, enc, imageDir, nil)
	return &fixture{h: api.New(st, gen, imageDir), st: st, imageDir: imageDir}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func postForm(t *testing.T, h http.Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func postJSON(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

const twoRecords = "A / https://a.test / qr_A.png\nB / https://b.test / qr_B.png\n"

// --- /api/v1/health ---------------------------------------------------------

func TestHealth_EmptyStore(t *testing.T) {
	f := newFixture(t, "")
	rr := get(t, f.h, "/api/v1/health")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp api.HealthResponse
	decode(t, rr, &resp)
	if resp.Status != "ok" {
		t.Errorf("status: got %q, want ok", resp.Status)
	}
	if resp.RecordCount != 0 {
		t.Errorf("record_count: got %d, want 0", resp.RecordCount)
	}
}

func TestHealth_CountsRecords(t *testing.T) {
	f := newFixture(t, twoRecords)
	var resp api.HealthResponse
	decode(t, get(t, f.h, "/api/v1/health"), &resp)
	if resp.RecordCount != 2 {
		t.Errorf("record_count: got %d, want 2", resp.RecordCount)
	}
}

func TestHealth_CorruptStore(t *testing.T) {
	f := newFixture(t, "broken line\n")
	rr := get(t, f.h, "/api/v1/health")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
	var resp api.HealthResponse
	decode(t, rr, &resp)
	if resp.Status != "error" || resp.Error == "" {
		t.Errorf("got %+v, want status=error with message", resp)
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	f := newFixture(t, "")
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/health", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- /api/v1/records --------------------------------------------------------

func TestListRecords_Empty(t *testing.T) {
	f := newFixture(t, "")
	rr := get(t, f.h, "/api/v1/records")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []api.RecordResponse
	decode(t, rr, &resp)
	if resp == nil {
		t.Error("records: got null, want []")
	}
	if len(resp) != 0 {
		t.Errorf("records: got %d items, want 0", len(resp))
	}
}

func TestListRecords_StoreOrder(t *testing.T) {
	f := newFixture(t, twoRecords)
	var resp []api.RecordResponse
	decode(t, get(t, f.h, "/api/v1/records"), &resp)

	if len(resp) != 2 {
		t.Fatalf("records: got %d, want 2", len(resp))
	}
	if resp[0].Key != "A" || resp[1].Key != "B" {
		t.Errorf("order: got %q,%q, want A,B", resp[0].Key, resp[1].Key)
	}
	if resp[0].ImageURL != "/images/qr_A.png" {
		t.Errorf("image_url: got %q", resp[0].ImageURL)
	}
}

func TestListRecords_CorruptStore(t *testing.T) {
	f := newFixture(t, "broken line\n")
	rr := get(t, f.h, "/api/v1/records")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rr.Code)
	}
}

func TestListRecords_MethodNotAllowed(t *testing.T) {
	f := newFixture(t, "")
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/records", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- /api/v1/records/{key} --------------------------------------------------

func TestGetRecord_Found(t *testing.T) {
	f := newFixture(t, "Mon Site / https://mon.test / qr_Mon Site.png\n")
	rr := get(t, f.h, "/api/v1/records/Mon%20Site")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	var resp api.RecordResponse
	decode(t, rr, &resp)
	if resp.URL != "https://mon.test" {
		t.Errorf("url: got %q", resp.URL)
	}
	if resp.ImageURL != "/images/qr_Mon%20Site.png" {
		t.Errorf("image_url: got %q", resp.ImageURL)
	}
}

func TestGetRecord_NotFound(t *testing.T) {
	f := newFixture(t, twoRecords)
	rr := get(t, f.h, "/api/v1/records/does-not-exist")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestGetRecord_BarePathLists(t *testing.T) {
	f := newFixture(t, twoRecords)
	var resp []api.RecordResponse
	decode(t, get(t, f.h, "/api/v1/records/"), &resp)
	if len(resp) != 2 {
		t.Errorf("records: got %d, want 2", len(resp))
	}
}

// --- /api/v1/generate -------------------------------------------------------

func TestGenerate_FormFields(t *testing.T) {
	f := newFixture(t, "")
	rr := postForm(t, f.h, url.Values{"nom_site": {"Acme"}, "url": {"acme.test"}})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body: %s)", rr.Code, rr.Body.String())
	}
	var resp api.GenerateResponse
	decode(t, rr, &resp)
	if resp.Key != "Acme" || resp.URL != "https://acme.test" || resp.Artifact != "qr_Acme.png" {
		t.Errorf("got %+v", resp.RecordResponse)
	}

	data, err := os.ReadFile(f.st.Path())
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	if got, want := string(data), "Acme / https://acme.test / qr_Acme.png\n"; got != want {
		t.Errorf("store: got %q, want %q", got, want)
	}
}

func TestGenerate_JSONBody(t *testing.T) {
	f := newFixture(t, twoRecords)
	rr := postJSON(t, f.h, `{"name":"A","url":"https://a2.test"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body: %s)", rr.Code, rr.Body.String())
	}

	var list []api.RecordResponse
	decode(t, get(t, f.h, "/api/v1/records"), &list)
	if len(list) != 2 {
		t.Fatalf("records: got %d, want 2", len(list))
	}
	if list[1].Key != "A" || list[1].URL != "https://a2.test" {
		t.Errorf("tail record: got %+v, want A with https://a2.test", list[1])
	}
}

func TestGenerate_ValidationIs400(t *testing.T) {
	f := newFixture(t, "")
	for name, form := range map[string]url.Values{
		"missing name":   {"url": {"acme.test"}},
		"missing url":    {"name": {"Acme"}},
		"separator name": {"name": {"A / B"}, "url": {"acme.test"}},
	} {
		t.Run(name, func(t *testing.T) {
			rr := postForm(t, f.h, form)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", rr.Code)
			}
		})
	}
	if _, err := os.Stat(f.st.Path()); !os.IsNotExist(err) {
		t.Errorf("store file should not exist after rejected input (stat err: %v)", err)
	}
}

func TestGenerate_InvalidJSON(t *testing.T) {
	f := newFixture(t, "")
	rr := postJSON(t, f.h, `{"name":`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestGenerate_EncoderFailureIs500(t *testing.T) {
	f := newFixtureWithEncoder(t, "", textEncoder{err: errors.New("disk full")})
	rr := postForm(t, f.h, url.Values{"name": {"Acme"}, "url": {"acme.test"}})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
	var resp map[string]string
	decode(t, rr, &resp)
	if resp["error"] != "QR code generation failed" {
		t.Errorf("error: got %q", resp["error"])
	}
}

func TestGenerate_CorruptStoreIs500(t *testing.T) {
	f := newFixture(t, "broken line\n")
	rr := postForm(t, f.h, url.Values{"name": {"Acme"}, "url": {"acme.test"}})
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rr.Code)
	}
}

func TestGenerate_MethodNotAllowed(t *testing.T) {
	f := newFixture(t, "")
	rr := get(t, f.h, "/api/v1/generate")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- /images/{artifact} -----------------------------------------------------

func TestImage_ServesGeneratedFile(t *testing.T) {
	f := newFixture(t, "")
	rr := postForm(t, f.h, url.Values{"name": {"Mon Site"}, "url": {"mon.test"}})
	if rr.Code != http.StatusCreated {
		t.Fatalf("generate status: got %d", rr.Code)
	}
	var resp api.GenerateResponse
	decode(t, rr, &resp)

	img := get(t, f.h, resp.ImageURL)
	if img.Code != http.StatusOK {
		t.Fatalf("image status: got %d, want 200", img.Code)
	}
	if img.Body.String() != "https://mon.test" {
		t.Errorf("image body: got %q", img.Body.String())
	}
}

func TestImage_NotFound(t *testing.T) {
	f := newFixture(t, "")
	for _, p := range []string{"/images/", "/images/missing.png", "/images/sub%5CBD.txt"} {
		rr := get(t, f.h, p)
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s status: got %d, want 404", p, rr.Code)
		}
	}
}

func TestImage_LegacyPathServesSameFile(t *testing.T) {
	f := newFixture(t, "")
	if rr := postForm(t, f.h, url.Values{"name": {"Acme"}, "url": {"acme.test"}}); rr.Code != http.StatusCreated {
		t.Fatalf("generate status: got %d", rr.Code)
	}

	img := get(t, f.h, "/image/qr_Acme.png")
	if img.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", img.Code)
	}
	if img.Body.String() != "https://acme.test" {
		t.Errorf("body: got %q", img.Body.String())
	}
}

func TestImage_OnlyArtifactNamesServed(t *testing.T) {
	// Image directory shared with the record file.
	dir := t.TempDir()
	st := store.New(filepath.Join(dir, "BD.txt"))
	gen := generate.New(st, textEncoder{}, dir, nil)
	h := api.New(st, gen, dir)

	rr := postForm(t, h, url.Values{"name": {"Acme"}, "url": {"acme.test"}})
	if rr.Code != http.StatusCreated {
		t.Fatalf("generate status: got %d", rr.Code)
	}

	for _, p := range []string{"/images/BD.txt", "/images/BD.txt.lock", "/image/BD.txt", "/images/qr_.png"} {
		if rr := get(t, h, p); rr.Code != http.StatusNotFound {
			t.Errorf("%s status: got %d, want 404", p, rr.Code)
		}
	}
	if rr := get(t, h, "/images/qr_Acme.png"); rr.Code != http.StatusOK {
		t.Errorf("artifact status: got %d, want 200", rr.Code)
	}
}

func TestGenerate_LegacyRoute(t *testing.T) {
	f := newFixture(t, "")
	form := url.Values{"nom_site": {"Acme"}, "url": {"acme.test"}}
	req := httptest.NewRequest(http.MethodPost, "/generer", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body: %s)", rr.Code, rr.Body.String())
	}
	var resp api.GenerateResponse
	decode(t, rr, &resp)
	if resp.Key != "Acme" || resp.ImageURL != "/images/qr_Acme.png" {
		t.Errorf("got %+v", resp.RecordResponse)
	}
}

func TestImage_EscapedArtifactRoundTrips(t *testing.T) {
	f := newFixture(t, "")
	rr := postForm(t, f.h, url.Values{"name": {"a:b"}, "url": {"first.test"}})
	if rr.Code != http.StatusCreated {
		t.Fatalf("generate status: got %d", rr.Code)
	}
	var resp api.GenerateResponse
	decode(t, rr, &resp)

	img := get(t, f.h, resp.ImageURL)
	if img.Code != http.StatusOK {
		t.Fatalf("image %s status: got %d, want 200", resp.ImageURL, img.Code)
	}
	if img.Body.String() != "https://first.test" {
		t.Errorf("image body: got %q", img.Body.String())
	}
}

// --- cross-cutting ----------------------------------------------------------

func TestContentTypeJSON(t *testing.T) {
	f := newFixture(t, twoRecords)
	for _, path := range []string{
		"/api/v1/health",
		"/api/v1/records",
		"/api/v1/records/A",
	} {
		rr := get(t, f.h, path)
		ct := rr.Header().Get("Content-Type")
		if ct != "application/json" {
			t.Errorf("%s Content-Type: got %q, want application/json", path, ct)
		}
	}
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, "")

	rr := get(t, f.h, "/api/v1/health")
	if rr.Header().Get(api.RequestIDHeader) == "" {
		t.Error("X-Request-Id: missing")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set(api.RequestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	if got := rr.Header().Get(api.RequestIDHeader); got != "abc-123" {
		t.Errorf("X-Request-Id: got %q, want abc-123", got)
	}
}

func TestBuildRecords(t *testing.T) {
	f := newFixture(t, twoRecords)
	resp, err := api.BuildRecords(context.Background(), f.st)
	if err != nil {
		t.Fatalf("BuildRecords: %v", err)
	}
	if len(resp.Records) != 2 {
		t.Errorf("records: got %d, want 2", len(resp.Records))
	}
	if resp.GeneratedAt == "" {
		t.Error("generated_at: missing")
	}
}
