package server

import (
	"bytes"
	"math"
	"strings"

	"github.com/KaramelBytes/airq-cli/internal/analysis"
	"github.com/KaramelBytes/airq-cli/internal/model"
	"github.com/gofiber/fiber/v2"
)

// Service is the application surface the handlers dispatch to.
type Service interface {
	Home() string
	Overview(option string) (string, error)
	Chart(label string) (*analysis.Figure, error)
	Predict(modelName string, f model.FeatureValues) (float64, error)
	Metrics() []model.Metrics
}

// Handler contains all HTTP handlers
type Handler struct {
	svc Service
}

// NewHandler creates a new handler
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "airq",
	})
}

// Home returns the landing page as markdown.
func (h *Handler) Home(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	return c.SendString(h.svc.Home())
}

// Options lists the selector values each endpoint accepts.
func (h *Handler) Options(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"overview": analysis.OverviewKinds(),
		"charts":   analysis.ChartLabels(),
		"models":   model.KindLabels(),
	})
}

// Overview renders one overview report as plain text.
func (h *Handler) Overview(c *fiber.Ctx) error {
	out, err := h.svc.Overview(c.Params("option"))
	if err != nil {
		return err
	}
	return c.SendString(out)
}

// Chart renders one chart as PNG.
func (h *Handler) Chart(c *fiber.Ctx) error {
	fig, err := h.svc.Chart(c.Params("kind"))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := fig.WriteTo(&buf); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(buf.Bytes())
}

// MetricsResponse wraps the accuracy scores with their scope.
type MetricsResponse struct {
	Success bool            `json:"success"`
	Note    string          `json:"note"`
	Data    []model.Metrics `json:"data"`
}

// Metrics returns in-sample accuracy for each fitted pipeline.
func (h *Handler) Metrics(c *fiber.Ctx) error {
	return c.JSON(MetricsResponse{
		Success: true,
		Note:    "in-sample (optimistic): scored on the rows the models were fitted on",
		Data:    h.svc.Metrics(),
	})
}

// PredictRequest is the prediction form. Pointers distinguish a missing
// field from an explicit zero.
type PredictRequest struct {
	Model string   `json:"model"`
	TEMP  *float64 `json:"TEMP"`
	PRES  *float64 `json:"PRES"`
	DEWP  *float64 `json:"DEWP"`
	RAIN  *float64 `json:"RAIN"`
	WSPM  *float64 `json:"WSPM"`
	PM10  *float64 `json:"PM10"`
	SO2   *float64 `json:"SO2"`
	NO2   *float64 `json:"NO2"`
	CO    *float64 `json:"CO"`
	O3    *float64 `json:"O3"`
	WD    string   `json:"wd"`
}

// Features converts the form to model input, rejecting missing numbers.
func (r PredictRequest) Features() (model.FeatureValues, error) {
	fields := []struct {
		name string
		v    *float64
	}{
		{"TEMP", r.TEMP}, {"PRES", r.PRES}, {"DEWP", r.DEWP}, {"RAIN", r.RAIN}, {"WSPM", r.WSPM},
		{"PM10", r.PM10}, {"SO2", r.SO2}, {"NO2", r.NO2}, {"CO", r.CO}, {"O3", r.O3},
	}
	for _, f := range fields {
		if f.v == nil {
			return model.FeatureValues{}, &model.ValidationError{Field: f.name, Value: math.NaN(), Reason: "value is required"}
		}
	}
	return model.FeatureValues{
		TEMP: *r.TEMP, PRES: *r.PRES, DEWP: *r.DEWP, RAIN: *r.RAIN, WSPM: *r.WSPM,
		PM10: *r.PM10, SO2: *r.SO2, NO2: *r.NO2, CO: *r.CO, O3: *r.O3,
		WD: strings.TrimSpace(r.WD),
	}, nil
}

// PredictResponse carries the predicted concentration.
type PredictResponse struct {
	Success    bool    `json:"success"`
	Model      string  `json:"model"`
	Prediction float64 `json:"prediction"`
	Text       string  `json:"text"`
}

// Predict scores the submitted form with the selected model.
func (h *Handler) Predict(c *fiber.Ctx) error {
	var req PredictRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	kind, err := model.ParseKind(req.Model)
	if err != nil {
		return err
	}
	f, err := req.Features()
	if err != nil {
		return err
	}
	v, err := h.svc.Predict(kind.String(), f)
	if err != nil {
		return err
	}
	return c.JSON(PredictResponse{
		Success:    true,
		Model:      kind.String(),
		Prediction: v,
		Text:       model.FormatPrediction(v),
	})
}
