package sandbox

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"
	"travelchat/app/config"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/samber/do"
	"golang.org/x/time/rate"
)

const (
	BasePath = "/api/v1/recommendations"
	// BaseURL is what the client should use when talking to the sandbox. The host is never dialed.
	BaseURL = "http://sandbox" + BasePath

	requestIDHeader = "X-Request-ID"
	recentWindow    = 5
	defaultPlaces   = 3
)

var _ do.Shutdownable = (*Server)(nil)

type createRequest struct {
	Text      string `json:"text" validate:"required"`
	NumPlaces *int   `json:"num_places" validate:"omitempty,min=1,max=10"`
}

// Server is an in-process stand-in for the recommendation service. It speaks the
// same HTTP contract and is reached through Transport instead of the network.
type Server struct {
	app      *fiber.App
	store    *store
	limiter  *rate.Limiter
	validate *validator.Validate
	now      func() time.Time
}

func New(di *do.Injector) (*Server, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewServer(cfg.Sandbox.CreatesPerMinute), nil
}

// NewServer builds the sandbox. createsPerMinute <= 0 disables create limiting.
func NewServer(createsPerMinute int) *Server {
	s := &Server{
		store:    newStore(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
	if createsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(createsPerMinute)), createsPerMinute)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "travelchat-sandbox",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s.app.Use(requestID, logRequest)
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	api := s.app.Group(BasePath)
	api.Post("/", s.rateLimit, s.create)
	api.Get("/history", s.history)
	api.Get("/search", s.search)
	api.Get("/statistics", s.statistics)
	api.Get("/:id", s.get)
	api.Delete("/:id", s.remove)

	return s
}

// Transport routes http.Client requests straight into the fiber app.
func (s *Server) Transport() http.RoundTripper {
	return fiberTransport{app: s.app}
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid request body")
	}
	if err := s.validate.Struct(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	numPlaces := defaultPlaces
	if req.NumPlaces != nil {
		numPlaces = *req.NumPlaces
	}

	recent := s.store.recent(recentWindow)
	exclude := accumulate(recent, extractExclusions(req.Text))
	places := suggest(req.Text, recent, exclude, numPlaces)

	rec := s.store.add(req.Text, exclude, numPlaces, places, s.now())

	slog.Debug("Sandbox recommendation created",
		"id", rec.ID,
		"exclude", rec.Exclude,
		"places", len(rec.ResponseJSON))

	return c.JSON(rec)
}

func (s *Server) history(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit", 10, 1, 100)
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset", 0, 0, -1)
	if err != nil {
		return err
	}

	return c.JSON(s.store.page(limit, offset))
}

func (s *Server) search(c *fiber.Ctx) error {
	term := c.Query("q")
	if term == "" {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "q must not be empty")
	}
	limit, err := queryInt(c, "limit", 10, 1, 50)
	if err != nil {
		return err
	}

	return c.JSON(s.store.search(term, limit))
}

func (s *Server) statistics(c *fiber.Ctx) error {
	return c.JSON(s.store.stats(s.now()))
}

func (s *Server) get(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	rec, ok := s.store.get(id)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "Request not found")
	}

	return c.JSON(rec)
}

func (s *Server) remove(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if !s.store.remove(id) {
		return fiber.NewError(fiber.StatusNotFound, "Request not found")
	}

	return c.JSON(fiber.Map{"message": "Recommendations deleted successfully"})
}

func (s *Server) rateLimit(c *fiber.Ctx) error {
	if s.limiter != nil && !s.limiter.Allow() {
		return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
	}

	return c.Next()
}

func requestID(c *fiber.Ctx) error {
	rid := c.Get(requestIDHeader)
	if rid == "" {
		rid = uuid.NewString()
	}

	c.Locals("request_id", rid)
	c.Set(requestIDHeader, rid)

	return c.Next()
}

func logRequest(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	rid, _ := c.Locals("request_id").(string)
	slog.Debug("Sandbox request",
		"request_id", rid,
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"error", err,
		"latency", time.Since(start))

	return err
}

// errorHandler renders every failure as {"detail": ...}, like the real service.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	return c.Status(code).JSON(fiber.Map{"detail": err.Error()})
}

func pathID(c *fiber.Ctx) (int, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return 0, fiber.NewError(fiber.StatusUnprocessableEntity, "id must be an integer")
	}

	return id, nil
}

// queryInt reads an optional integer query parameter. hi < 0 means unbounded.
func queryInt(c *fiber.Ctx, key string, def, lo, hi int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < lo || (hi >= 0 && value > hi) {
		return 0, fiber.NewError(fiber.StatusUnprocessableEntity, "invalid "+key)
	}

	return value, nil
}
