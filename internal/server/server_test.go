package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/airq-cli/internal/app"
	"github.com/KaramelBytes/airq-cli/internal/model"
	"github.com/gofiber/fiber/v2"
)

const header = "No,year,month,day,hour,PM2.5,PM10,SO2,NO2,CO,O3,TEMP,PRES,DEWP,RAIN,wd,WSPM,station"

func newTestApp(t *testing.T, models ...model.Kind) *fiber.App {
	t.Helper()
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString(header + "\n")
	dirs := []string{"N", "E", "S", "W"}
	for i := 0; i < 40; i++ {
		pm10 := 30 + float64(i%11)*5
		fmt.Fprintf(&b, "%d,2015,%d,%d,%d,%g,%g,4,18,300,60,%d,1012,-3,0,%s,%g,Dongsi\n",
			i+1, 1+i%12, 1+i/24, i%24, 0.5*pm10+10, pm10, i%12, dirs[i%4], 1+float64(i%3))
	}
	if err := os.WriteFile(filepath.Join(dir, "PRSA_Data_Dongsi.csv"), []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	opt := model.DefaultOptions()
	opt.Forest.Trees = 5
	svc, err := app.New(context.Background(), app.Config{DataDir: dir, HeadRows: 5, MaxScatterPoints: 50, Models: models, Model: opt})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	return New(svc, Options{Quiet: true})
}

func do(t *testing.T, a *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := a.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func postJSON(path string, v interface{}) *http.Request {
	data, _ := json.Marshal(v)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func form(modelName string) map[string]interface{} {
	return map[string]interface{}{
		"model": modelName,
		"TEMP":  5, "PRES": 1012, "DEWP": -3, "RAIN": 0, "WSPM": 2,
		"PM10": 60, "SO2": 4, "NO2": 18, "CO": 300, "O3": 60,
		"wd": "N",
	}
}

func TestHealthAndHome(t *testing.T) {
	a := newTestApp(t)
	resp, body := do(t, a, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(body), `"status":"ok"`) {
		t.Fatalf("health: %d %s", resp.StatusCode, body)
	}
	resp, body = do(t, a, httptest.NewRequest(http.MethodGet, "/api/v1/home", nil))
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(body), "Loaded 40 rows") {
		t.Fatalf("home: %d %s", resp.StatusCode, body)
	}
}

func TestOverviewRoute(t *testing.T) {
	a := newTestApp(t)
	resp, body := do(t, a, httptest.NewRequest(http.MethodGet, "/api/v1/overview/Shape", nil))
	if resp.StatusCode != fiber.StatusOK || string(body) != "Rows: 40, Columns: 19" {
		t.Fatalf("shape: %d %q", resp.StatusCode, body)
	}
	resp, body = do(t, a, httptest.NewRequest(http.MethodGet, "/api/v1/overview/bogus", nil))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("unsupported overview: %d %s", resp.StatusCode, body)
	}
	var e map[string]interface{}
	if err := json.Unmarshal(body, &e); err != nil || e["error"] != true {
		t.Fatalf("error body: %s", body)
	}
}

func TestChartRouteServesPNG(t *testing.T) {
	a := newTestApp(t, model.LinearRegressionKind)
	resp, body := do(t, a, httptest.NewRequest(http.MethodGet, "/api/v1/charts/average-pm2-5-by-month", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("chart: %d %s", resp.StatusCode, body)
	}
	if resp.Header.Get("Content-Type") != "image/png" || !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Fatalf("not a png: %q", resp.Header.Get("Content-Type"))
	}
}

func TestPredictRoute(t *testing.T) {
	a := newTestApp(t)
	resp, body := do(t, a, postJSON("/api/v1/predict", form("Linear Regression")))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("predict: %d %s", resp.StatusCode, body)
	}
	var out PredictResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if out.Model != "Linear Regression" || out.Prediction < 39.9 || out.Prediction > 40.1 {
		t.Fatalf("unexpected prediction: %+v", out)
	}
	if !strings.HasPrefix(out.Text, "Predicted PM2.5: ") {
		t.Fatalf("text = %q", out.Text)
	}
}

func TestPredictRouteErrors(t *testing.T) {
	a := newTestApp(t, model.LinearRegressionKind)
	cases := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{"unsupported model", form("Unsupported"), fiber.StatusBadRequest},
		{"not fitted", form("Random Forest"), fiber.StatusConflict},
	}
	missing := form("lr")
	delete(missing, "PM10")
	cases = append(cases, struct {
		name string
		body map[string]interface{}
		want int
	}{"missing field", missing, fiber.StatusUnprocessableEntity})
	negative := form("lr")
	negative["RAIN"] = -1
	cases = append(cases, struct {
		name string
		body map[string]interface{}
		want int
	}{"negative rain", negative, fiber.StatusUnprocessableEntity})

	for _, tc := range cases {
		resp, body := do(t, a, postJSON("/api/v1/predict", tc.body))
		if resp.StatusCode != tc.want {
			t.Errorf("%s: status %d, want %d (%s)", tc.name, resp.StatusCode, tc.want, body)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	if resp, _ := do(t, a, req); resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("malformed body: %d", resp.StatusCode)
	}
}

func TestMetricsRoute(t *testing.T) {
	a := newTestApp(t)
	resp, body := do(t, a, httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("metrics: %d %s", resp.StatusCode, body)
	}
	var out MetricsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Data) != 2 || !strings.HasPrefix(out.Note, "in-sample") {
		t.Fatalf("metrics = %+v", out)
	}
}
