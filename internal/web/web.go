// Package web 内嵌 tutor 与 dashboard 的页面模板。
package web

import (
	"embed"
	"html/template"
	"math"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"pct": func(v float64) string {
		return formatFloat(v, 1) + "%"
	},
	"score": func(v float64) string {
		return formatFloat(v, 2)
	},
	"hours": func(v float64) string {
		return formatFloat(math.Round(v*10)/10, 1)
	},
}

// Templates 解析全部内嵌模板，供 gin 的 SetHTMLTemplate 使用。
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}
