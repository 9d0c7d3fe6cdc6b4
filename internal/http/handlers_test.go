package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/raid-controller/internal/application"
	"github.com/example/raid-controller/internal/arbitration"
	"github.com/example/raid-controller/internal/proxyfire"
	"github.com/example/raid-controller/internal/raid"
	"github.com/example/raid-controller/internal/testfixtures"
)

type apiHarness struct {
	handler http.Handler
	factory *testfixtures.ServiceFactory
	service *application.RaidService
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	factory := testfixtures.NewServiceFactory(testfixtures.WithClock(testfixtures.NewClock(testfixtures.WeekTime(time.Monday, 12, 0, nil))))
	sqlite := testfixtures.NewSQLiteHarness(t)
	service := factory.NewRaidService(t, testfixtures.RaidServiceDeps{Wipes: sqlite.Wipes, RuleSets: sqlite.RuleSets})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := NewRouter(RouterConfig{
		Sessions:   NewSessionHandler(service, logger),
		Damage:     NewDamageHandler(service, logger),
		Admin:      NewAdminHandler(service, logger),
		Middleware: []func(http.Handler) http.Handler{RequestLogger(logger)},
	})
	return &apiHarness{handler: handler, factory: factory, service: service}
}

func (h *apiHarness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	h.handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(recorder.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, recorder.Body.String())
	}
	return out
}

func TestSessionHandlers(t *testing.T) {
	t.Parallel()

	t.Run("start returns the resolved snapshot", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		rec := h.do(t, http.MethodPost, "/sessions", map[string]any{"actor_id": 1, "locale": "de"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		snap := decodeBody[raid.Snapshot](t, rec)
		if snap.ActorID != "1" || snap.CanRaid || snap.Status != raid.StatusRaidClosed || snap.Locale != "de" {
			t.Fatalf("unexpected snapshot %+v", snap)
		}

		list := decodeBody[sessionsResponse](t, h.do(t, http.MethodGet, "/sessions", nil))
		if len(list.Sessions) != 1 || list.Sessions[0] != "1" {
			t.Fatalf("unexpected session list %+v", list)
		}
	})

	t.Run("validation errors map to 422", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		rec := h.do(t, http.MethodPost, "/sessions", map[string]any{"groups": []string{""}})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		resp := decodeBody[errorResponse](t, rec)
		if resp.ErrorCode != "validation" || resp.Errors["actor_id"] == "" {
			t.Fatalf("unexpected error payload %+v", resp)
		}
	})

	t.Run("malformed bodies map to 400", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		if rec := h.do(t, http.MethodPost, "/sessions", "{"); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if rec := h.do(t, http.MethodPost, "/sessions", `{"actor_id":1,"unknown":true}`); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for unknown fields, got %d", rec.Code)
		}
	})

	t.Run("missing sessions map to 404", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		for _, tc := range []struct{ method, path string }{
			{http.MethodGet, "/actors/5/status"},
			{http.MethodPost, "/actors/5/refresh"},
			{http.MethodDelete, "/sessions/5"},
		} {
			rec := h.do(t, tc.method, tc.path, nil)
			if rec.Code != http.StatusNotFound {
				t.Fatalf("%s %s: expected 404, got %d", tc.method, tc.path, rec.Code)
			}
			if resp := decodeBody[errorResponse](t, rec); resp.ErrorCode != "no_session" {
				t.Fatalf("%s %s: expected no_session code, got %+v", tc.method, tc.path, resp)
			}
		}
		if rec := h.do(t, http.MethodPut, "/sessions/5", map[string]any{"groups": []string{"vip"}}); rec.Code != http.StatusNotFound {
			t.Fatalf("PUT expected 404, got %d", rec.Code)
		}
	})

	t.Run("invalid actor ids map to 400", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		if rec := h.do(t, http.MethodGet, "/actors/abc/status", nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if rec := h.do(t, http.MethodGet, "/actors/1/unknown", nil); rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for unknown action, got %d", rec.Code)
		}
	})

	t.Run("update refresh and end", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)
		h.do(t, http.MethodPost, "/sessions", map[string]any{"actor_id": 3})

		if rec := h.do(t, http.MethodPut, "/sessions/3", map[string]any{"groups": []string{"vip"}}); rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
		}
		if rec := h.do(t, http.MethodPost, "/actors/3/refresh", nil); rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
		h.service.Tick(t.Context())

		snap := decodeBody[raid.Snapshot](t, h.do(t, http.MethodGet, "/actors/3/status", nil))
		if !snap.CanRaid || snap.Status != raid.StatusAllDayRaid {
			t.Fatalf("expected vip all-day raid after tick, got %+v", snap)
		}

		if rec := h.do(t, http.MethodDelete, "/sessions/3", nil); rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})
}

func TestDamageHandlers(t *testing.T) {
	t.Parallel()

	t.Run("denied hits carry refund and notice", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)
		h.do(t, http.MethodPost, "/sessions", map[string]any{"actor_id": 1})

		event := testfixtures.DirectHit(1, testfixtures.NewTarget(), testfixtures.RocketHV, proxyfire.Vec3{X: 1})
		rec := h.do(t, http.MethodPost, "/damage", event)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		verdict := decodeBody[application.DamageVerdict](t, rec)
		if verdict.Allowed || verdict.Rule != arbitration.RuleDenied {
			t.Fatalf("expected denied verdict, got %+v", verdict)
		}
		if verdict.Refund == nil || verdict.Refund.Item != "ammo.rocket.hv" {
			t.Fatalf("expected rocket refund, got %+v", verdict.Refund)
		}
		if verdict.Notice == nil || verdict.Notice.Hours != 4 {
			t.Fatalf("expected 4h countdown notice, got %+v", verdict.Notice)
		}
	})

	t.Run("unknown damage kind maps to 422", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		rec := h.do(t, http.MethodPost, "/damage", map[string]any{"kind": "laser"})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})

	t.Run("fire origins round trip", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		rec := h.do(t, http.MethodPost, "/fire-origins", map[string]any{"actor_id": 4, "point": map[string]float64{"x": 1, "y": 2, "z": 3}})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		origin := decodeBody[proxyfire.Origin](t, rec)
		if origin.ID != "id-1" || origin.Actor != 4 {
			t.Fatalf("unexpected origin %+v", origin)
		}

		list := decodeBody[originsResponse](t, h.do(t, http.MethodGet, "/fire-origins", nil))
		if len(list.Origins) != 1 {
			t.Fatalf("expected one origin, got %+v", list)
		}

		h.factory.Clock.Advance(31 * time.Second)
		list = decodeBody[originsResponse](t, h.do(t, http.MethodGet, "/fire-origins", nil))
		if len(list.Origins) != 0 {
			t.Fatalf("expected expired origins to be dropped, got %+v", list)
		}
	})

	t.Run("wrong method maps to 405", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		rec := h.do(t, http.MethodGet, "/damage", nil)
		if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") != http.MethodPost {
			t.Fatalf("expected 405 with Allow header, got %d %q", rec.Code, rec.Header().Get("Allow"))
		}
	})
}

func TestAdminHandlers(t *testing.T) {
	t.Parallel()

	t.Run("wipes are recorded and listed", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		rec := h.do(t, http.MethodPost, "/wipes", map[string]string{"at": "2024-03-04T11:00:00Z", "reason": "monthly"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if rec := h.do(t, http.MethodPost, "/wipes", nil); rec.Code != http.StatusCreated {
			t.Fatalf("expected empty body to record a wipe at now, got %d", rec.Code)
		}

		list := decodeBody[wipesResponse](t, h.do(t, http.MethodGet, "/wipes?limit=1", nil))
		if len(list.Wipes) != 1 || list.Wipes[0].At != "2024-03-04T12:00:00Z" || list.LastWipe != "2024-03-04T12:00:00Z" {
			t.Fatalf("unexpected wipe list %+v", list)
		}
		if rec := h.do(t, http.MethodGet, "/wipes?limit=x", nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
		}
	})

	t.Run("wipe timestamps are validated", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		for _, at := range []string{"yesterday", "2024-03-05T00:00:00Z"} {
			rec := h.do(t, http.MethodPost, "/wipes", map[string]string{"at": at})
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("at=%q: expected 422, got %d", at, rec.Code)
			}
		}
	})

	t.Run("rules are validated stored and served", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		rec := h.do(t, http.MethodPut, "/rules", "profiles:\n  - key: vip\n")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 without default profile, got %d", rec.Code)
		}
		if resp := decodeBody[errorResponse](t, rec); resp.Errors["/profiles"] == "" {
			t.Fatalf("expected /profiles field error, got %+v", resp)
		}

		document := strings.Replace(testfixtures.RulesDocument, "enabled: true\nbypass", "enabled: false\nbypass", 1)
		rec = h.do(t, http.MethodPut, "/rules", document)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		applied := decodeBody[rulesDTO](t, rec)

		get := h.do(t, http.MethodGet, "/rules", nil)
		if get.Body.String() != document || get.Header().Get("ETag") != `"`+applied.Checksum+`"` {
			t.Fatalf("expected applied document to be served, got %q", get.Body.String())
		}

		req := httptest.NewRequest(http.MethodGet, "/rules", nil)
		req.Header.Set("Accept", "application/json")
		meta := httptest.NewRecorder()
		h.handler.ServeHTTP(meta, req)
		if info := decodeBody[rulesDTO](t, meta); info.ID != applied.ID {
			t.Fatalf("expected metadata for applied rules, got %+v", info)
		}

		h.do(t, http.MethodPost, "/sessions", map[string]any{"actor_id": 1})
		event := testfixtures.DirectHit(1, testfixtures.NewTarget(), testfixtures.RocketHV, proxyfire.Vec3{})
		verdict := decodeBody[application.DamageVerdict](t, h.do(t, http.MethodPost, "/damage", event))
		if !verdict.Allowed || verdict.Rule != application.RuleRulesDisabled {
			t.Fatalf("expected disabled rules to allow damage, got %+v", verdict)
		}
	})
}
