package status_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"umbra/internal/adapters/observability"
	"umbra/internal/core/plan"
	"umbra/internal/core/timeline"
	"umbra/internal/modkit"
	modreg "umbra/internal/modkit/module"
	"umbra/internal/platform/config"
	phttp "umbra/internal/platform/net/http"
	"umbra/internal/platform/testkit"
	schedmod "umbra/internal/services/schedule/module"
	schedsvc "umbra/internal/services/schedule/service"
	shoot "umbra/internal/services/shooter/domain"
	shootmod "umbra/internal/services/shooter/module"
	"umbra/internal/services/status"
	statusmod "umbra/internal/services/status/module"

	"github.com/gorilla/websocket"
)

var t0 = time.Date(2026, 8, 12, 17, 0, 0, 0, time.UTC)

func contacts() timeline.Contacts {
	return timeline.Contacts{
		C1:  t0,
		C2:  t0.Add(10 * time.Minute),
		Max: t0.Add(11 * time.Minute),
		C3:  t0.Add(12 * time.Minute),
		C4:  t0.Add(22 * time.Minute),
	}
}

type envelope struct {
	StatusCode int             `json:"status_code"`
	Error      string          `json:"error"`
	Data       json.RawMessage `json:"data"`
}

func get(t *testing.T, url string) (int, envelope) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

func post(t *testing.T, url, body string) (int, envelope) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

// setup wires schedule, shooter and status the way umbra-shoot does
func setup(t *testing.T, withShooter bool) (*httptest.Server, *statusmod.Module, *observability.Prom) {
	t.Helper()
	testkit.Serial(t)
	modreg.Reset()
	t.Cleanup(modreg.Reset)

	svc, err := schedsvc.New(schedsvc.Config{Plan: plan.Defaults(contacts())}, nil)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	modreg.Register("schedule", schedmod.Ports{Planner: svc, Preview: svc})

	deps := modkit.Deps{Cfg: config.New()}
	sm := statusmod.New(deps, "umbra-test")
	prom := observability.NewProm()
	if withShooter {
		shootmod.New(deps, nil, nil, shootmod.Options{}).Register()
	}

	srv := phttp.NewServer(config.New())
	status.Mount(srv.Router(), status.Options{Module: sm, Metrics: prom.Handler()})
	ts := httptest.NewServer(srv.Router().Mux())
	t.Cleanup(ts.Close)
	return ts, sm, prom
}

func TestHealthz(t *testing.T) {
	ts, _, _ := setup(t, false)
	code, env := get(t, ts.URL+"/healthz")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	var h struct {
		Status string `json:"status"`
		Build  struct {
			Service string `json:"service"`
		} `json:"build"`
	}
	if err := json.Unmarshal(env.Data, &h); err != nil || h.Status != "ok" || h.Build.Service != "umbra-test" {
		t.Fatalf("health = %s (%v)", env.Data, err)
	}
}

func TestPlanAndPreview(t *testing.T) {
	ts, _, _ := setup(t, false)

	code, env := get(t, ts.URL+"/v1/plan")
	if code != http.StatusOK {
		t.Fatalf("plan code = %d %s", code, env.Error)
	}
	var v struct {
		Mode    string `json:"mode"`
		Summary struct {
			Shots int `json:"shots"`
		} `json:"summary"`
		Rows []struct {
			Seq    int     `json:"seq"`
			FromC2 float64 `json:"from_c2"`
		} `json:"rows"`
	}
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Mode != "lazy" || v.Summary.Shots == 0 || len(v.Rows) != v.Summary.Shots || v.Rows[0].Seq != 1 {
		t.Fatalf("plan view = %+v", v)
	}
	if v.Rows[0].FromC2 != -600 {
		t.Fatalf("first shot should be at C1, from_c2 = %v", v.Rows[0].FromC2)
	}

	code, env = post(t, ts.URL+"/v1/plan/preview", `{"partial":{"delta":0,"exposures":["1/1000"]}}`)
	if code != http.StatusOK {
		t.Fatalf("preview code = %d %s", code, env.Error)
	}
	var p struct {
		Summary struct {
			Shots int `json:"shots"`
		} `json:"summary"`
	}
	_ = json.Unmarshal(env.Data, &p)
	if p.Summary.Shots <= v.Summary.Shots {
		t.Fatalf("back to back partial shots should grow the table: %d vs %d", p.Summary.Shots, v.Summary.Shots)
	}

	code, env = post(t, ts.URL+"/v1/plan/preview", `{"mode":"bulb"}`)
	if code != http.StatusBadRequest || !strings.Contains(env.Error, "mode") {
		t.Fatalf("invalid mode: code=%d err=%q", code, env.Error)
	}
	for _, oh := range []string{"1e300", "1e-7", "inf"} {
		code, env = post(t, ts.URL+"/v1/plan/preview", `{"overhead":"`+oh+`"}`)
		if code != http.StatusBadRequest || !strings.Contains(env.Error, "overhead") {
			t.Fatalf("overhead %s: code=%d err=%q", oh, code, env.Error)
		}
	}
	code, _ = post(t, ts.URL+"/v1/plan/preview", `{"nope":1}`)
	if code != http.StatusBadRequest {
		t.Fatalf("unknown field: code=%d", code)
	}
}

func TestRunWithoutShooter(t *testing.T) {
	ts, _, _ := setup(t, false)
	if code, _ := get(t, ts.URL+"/v1/run"); code != http.StatusNotFound {
		t.Fatalf("run code = %d", code)
	}
	if code, _ := get(t, ts.URL+"/v1/shots"); code != http.StatusNotFound {
		t.Fatalf("shots code = %d", code)
	}
}

func TestRunAndShots(t *testing.T) {
	ts, _, _ := setup(t, true)
	code, env := get(t, ts.URL+"/v1/run")
	if code != http.StatusOK {
		t.Fatalf("run code = %d %s", code, env.Error)
	}
	var st shoot.RunState
	if err := json.Unmarshal(env.Data, &st); err != nil || st.Running {
		t.Fatalf("state = %s (%v)", env.Data, err)
	}
	code, env = get(t, ts.URL+"/v1/shots")
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"count":0`) {
		t.Fatalf("shots = %d %s", code, env.Data)
	}
}

func TestMetricsAndDocs(t *testing.T) {
	ts, _, prom := setup(t, false)
	prom.Observe(shoot.Event{Kind: shoot.EventRunStarted})

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(b), "umbra_run_active 1") {
		t.Fatalf("metrics body lacks run gauge:\n%s", b)
	}

	resp, err = http.Get(ts.URL + "/api/docs/doc.json")
	if err != nil {
		t.Fatalf("docs: %v", err)
	}
	b, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(b), "/v1/plan/preview") {
		t.Fatalf("docs = %d", resp.StatusCode)
	}
}

func TestFeed(t *testing.T) {
	ts, sm, _ := setup(t, false)
	hub := sm.Ports().(statusmod.Ports).Feed

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/feed", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client never joined")
		}
		time.Sleep(5 * time.Millisecond)
	}
	hub.Observe(shoot.Event{Kind: shoot.EventWaiting, RunID: "r9", Wait: 12.5})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev shoot.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Kind != shoot.EventWaiting || ev.Wait != 12.5 {
		t.Fatalf("event = %+v", ev)
	}
}
