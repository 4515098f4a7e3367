package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/smart-city-backend/internal/logging"
	"github.com/i474232898/smart-city-backend/internal/metrics"
	"github.com/i474232898/smart-city-backend/internal/optimize"
	"github.com/i474232898/smart-city-backend/internal/report"
	"github.com/i474232898/smart-city-backend/internal/store"
	"github.com/i474232898/smart-city-backend/internal/traffic"
	"github.com/i474232898/smart-city-backend/internal/traffic/providers"
)

var validate = validator.New()

// FlowLookup returns the upstream flow segment reply for a single point.
type FlowLookup interface {
	FetchRaw(ctx context.Context, pt traffic.SamplePoint) (providers.RawResponse, error)
}

// LiveFeed returns the upstream live traffic reply.
type LiveFeed interface {
	Fetch(ctx context.Context) (providers.RawResponse, error)
}

// Deps are the services the handlers delegate to.
type Deps struct {
	Heatmap *traffic.Service
	Flow    FlowLookup
	Live    LiveFeed
	Issues  report.Store

	// UpstreamTimeout bounds the single-call proxy endpoints.
	UpstreamTimeout time.Duration
}

// NewApp returns a Fiber app with the shared JSON codec, error handler and
// panic recovery.
func NewApp(name string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          ErrorHandler,
	})
	app.Use(recover.New())
	return app
}

// ErrorHandler renders every error as {"error": message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		logging.Error().Err(err).Str("path", c.Path()).Msg("unhandled request error")
	}

	return c.Status(code).JSON(fiber.Map{"error": msg})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	timeout := deps.UpstreamTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	heatmap := heatmapHandler(deps.Heatmap)
	app.Get("/getTrafficHeatmap", heatmap)
	app.Get("/tomtom-traffic-bbox", heatmap)

	app.Get("/tomtom-traffic", func(c *fiber.Ctx) error {
		q, err := parseCenterQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()

		raw, err := deps.Flow.FetchRaw(ctx, traffic.SamplePoint{Lat: q.lat, Lon: q.lon})
		if err != nil {
			logging.Error().Err(err).Float64("lat", q.lat).Float64("lon", q.lon).Msg("flow segment fetch failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch flow segment")
		}

		return sendRaw(c, raw)
	})

	app.Get("/getTraffic", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()

		raw, err := deps.Live.Fetch(ctx)
		if err != nil {
			logging.Error().Err(err).Msg("traffic fetch error")
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch traffic")
		}

		return sendRaw(c, raw)
	})

	app.Post("/optimize", func(c *fiber.Ctx) error {
		// Bodies not sent as JSON are treated as empty metrics.
		var m optimize.Metrics
		if len(c.Body()) > 0 && c.Is("json") {
			if err := c.BodyParser(&m); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
			}
		}

		return c.JSON(fiber.Map{
			"suggestions": optimize.Suggest(m),
		})
	})

	app.Post("/reportIssue", func(c *fiber.Ctx) error {
		var req issueRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
			}
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Missing required fields")
		}

		issue := deps.Issues.Save(req.toIssue())
		metrics.IssuesReported.Inc()
		logging.Info().Int("id", issue.ID).Str("type", issue.Type).Msg("issue reported")

		return c.JSON(issue)
	})

	app.Get("/issues", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"issues": deps.Issues.List(),
		})
	})

	app.Get("/issues/:id", func(c *fiber.Ctx) error {
		id, err := strconv.Atoi(c.Params("id"))
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id must be a positive integer")
		}

		issue, err := deps.Issues.Get(id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "issue not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch issue")
		}

		return c.JSON(issue)
	})
}

func heatmapHandler(svc *traffic.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := parseCenterQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := svc.ComputeHeatmap(c.UserContext(), q.lat, q.lon)
		if err != nil {
			logging.Error().Err(err).Msg("heatmap computation failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch heatmap points")
		}

		return c.JSON(result)
	}
}

// sendRaw forwards an upstream reply with its status code.
func sendRaw(c *fiber.Ctx, raw providers.RawResponse) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(raw.Status).Send(raw.Body)
}

// centerQuery holds the raw coordinate query parameters.
type centerQuery struct {
	Lat string `validate:"required"`
	Lon string `validate:"required"`

	lat, lon float64
}

func parseCenterQuery(c *fiber.Ctx) (centerQuery, error) {
	var q centerQuery

	q.Lat = c.Query("lat")
	q.Lon = c.Query("lon")

	if err := validate.Struct(q); err != nil {
		return q, errors.New("lat and lon required")
	}

	lat, lon, err := traffic.ParseCenter(q.Lat, q.Lon)
	if err != nil {
		return q, err
	}
	q.lat, q.lon = lat, lon

	return q, nil
}

// issueRequest is the body of POST /reportIssue.
type issueRequest struct {
	Type string   `json:"type" validate:"required"`
	Desc string   `json:"desc" validate:"required"`
	Lat  *float64 `json:"lat"`
	Lng  *float64 `json:"lng"`
}

func (r issueRequest) toIssue() report.Issue {
	return report.Issue{
		Type: r.Type,
		Desc: r.Desc,
		Lat:  r.Lat,
		Lng:  r.Lng,
	}
}
