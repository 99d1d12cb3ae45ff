package sandbox

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

type fiberTransport struct {
	app *fiber.App
}

// RoundTrip hands the request to the app without a listener. Requests are cloned
// because app.Test adds headers of its own.
func (t fiberTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.app.Test(req.Clone(req.Context()), -1)
}
