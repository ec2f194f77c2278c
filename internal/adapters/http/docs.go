package http

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/gofiber/fiber/v2"
)

const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Percorsi Route Enumeration API</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
  <style>
    html{box-sizing:border-box}
    *,*::before,*::after{box-sizing:inherit}
    body{margin:0;background:#fafafa}
  </style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/docs/openapi.yaml",
      dom_id: "#swagger-ui",
      deepLinking: true,
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: "BaseLayout"
    });
  </script>
</body>
</html>`

var (
	specOnce sync.Once
	specData []byte
)

// loadSpec reads api/openapi.yaml once, looking upward from the working
// directory so binaries run from the repository root and from cmd/api
// both find it.
func loadSpec() []byte {
	specOnce.Do(func() {
		dir := "."
		for i := 0; i < 5; i++ {
			data, err := os.ReadFile(filepath.Join(dir, "api", "openapi.yaml"))
			if err == nil {
				specData = data
				return
			}
			dir = filepath.Join(dir, "..")
		}
	})
	return specData
}

// SetupDocs serves Swagger UI at /docs and the raw OpenAPI document at
// /docs/openapi.yaml.
func SetupDocs(app *fiber.App) {
	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/html; charset=utf-8")
		return c.SendString(docsPage)
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		spec := loadSpec()
		if spec == nil {
			return errNotFound(c, "openapi document not available")
		}
		c.Set("Content-Type", "application/yaml")
		return c.Send(spec)
	})
}
