package docs

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// Handler serves the OpenAPI document and the Swagger UI.
type Handler struct {
	doc *openapi3.T
}

// NewHandler builds the document once for version.
func NewHandler(version string) *Handler {
	return &Handler{doc: Build(version)}
}

// forRequest returns a shallow copy of the document whose server list points
// at the host the request arrived on.
func (h *Handler) forRequest(r *http.Request) *openapi3.T {
	d := *h.doc
	d.Servers = openapi3.Servers{{URL: BaseURL(r), Description: "This server"}}
	return &d
}

// UI serves GET /docs.
func (h *Handler) UI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, swaggerUIPage)
}

// JSON serves GET /docs/openapi.json.
func (h *Handler) JSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(h.forRequest(r)); err != nil {
		slog.Error("openapi json encode failed", slog.String("error", err.Error()))
	}
}

// YAML serves GET /docs/openapi.yaml.
func (h *Handler) YAML(w http.ResponseWriter, r *http.Request) {
	out, err := yaml.Marshal(h.forRequest(r))
	if err != nil {
		slog.Error("openapi yaml encode failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(out)
}

// BaseURL returns scheme://host for the request, honouring
// X-Forwarded-Proto.
func BaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	return scheme + "://" + r.Host
}

const swaggerUIPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>mockbox API docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
  <script>
    window.onload = () => {
      window.ui = SwaggerUIBundle({
        url: window.location.pathname.replace(/\/$/, '') + '/openapi.json',
        dom_id: '#swagger-ui',
        deepLinking: true,
      });
    };
  </script>
</body>
</html>
`
