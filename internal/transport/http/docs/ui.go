package docs

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	SpecPath  = "/openapi.json"
	SwaggerUI = "/docs"
	ReDocUI   = "/redoc"
)

var swaggerPage = template.Must(template.New("swagger").Parse(`<!DOCTYPE html>
<html>
<head>
<title>{{.Title}} - Swagger UI</title>
<meta charset="utf-8">
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>
SwaggerUIBundle({url: "{{.Spec}}", dom_id: "#swagger-ui", deepLinking: true});
</script>
</body>
</html>
`))

var redocPage = template.Must(template.New("redoc").Parse(`<!DOCTYPE html>
<html>
<head>
<title>{{.Title}} - ReDoc</title>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body>
<redoc spec-url="{{.Spec}}"></redoc>
<script src="https://cdn.jsdelivr.net/npm/redoc@2/bundles/redoc.standalone.js"></script>
</body>
</html>
`))

// Mount serves the document and both UIs on r.
func (b *Builder) Mount(r gin.IRoutes) {
	r.GET(SpecPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, b.Document())
	})
	r.GET(SwaggerUI, b.page(swaggerPage))
	r.GET(ReDocUI, b.page(redocPage))
}

func (b *Builder) page(t *template.Template) gin.HandlerFunc {
	data := struct{ Title, Spec string }{Title: b.title, Spec: SpecPath}
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.Status(http.StatusOK)
		if err := t.Execute(c.Writer, data); err != nil {
			_ = c.Error(err)
		}
	}
}
