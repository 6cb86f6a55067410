// Package swagger serves the API document and a browser viewer for it.
package swagger

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var document []byte

// viewerVersion pins the swagger-ui-dist release loaded from the CDN.
const viewerVersion = "5.11.0"

var (
	jsonOnce sync.Once
	jsonDoc  []byte
	jsonErr  error
)

// DocumentJSON returns the embedded document converted to JSON.
func DocumentJSON() ([]byte, error) {
	jsonOnce.Do(func() {
		var doc any
		if err := yaml.Unmarshal(document, &doc); err != nil {
			jsonErr = fmt.Errorf("parse openapi document: %w", err)
			return
		}
		jsonDoc, jsonErr = json.Marshal(stringKeys(doc))
	})
	return jsonDoc, jsonErr
}

// stringKeys rewrites mappings with non-string keys, such as unquoted
// response codes, so the document can be encoded as JSON.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = stringKeys(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = stringKeys(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = stringKeys(e)
		}
		return t
	default:
		return v
	}
}

// Handler serves the viewer at / and the document at /openapi.yaml and
// /openapi.json. It expects to be mounted at /swagger with http.StripPrefix.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(document)
	})
	mux.HandleFunc("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		b, err := DocumentJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = viewer.Execute(w, struct {
			Title, Version, DocURL string
		}{"Tariff Compare API", viewerVersion, "/swagger/openapi.json"})
	})
	return mux
}

var viewer = template.Must(template.New("viewer").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@{{.Version}}/swagger-ui.css">
  <style>body{margin:0}.swagger-ui .topbar{display:none}</style>
</head>
<body>
  <div id="api-docs"></div>
  <script src="https://unpkg.com/swagger-ui-dist@{{.Version}}/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({url: {{.DocURL}}, dom_id: "#api-docs", deepLinking: true, docExpansion: "list"});
  </script>
</body>
</html>
`))
