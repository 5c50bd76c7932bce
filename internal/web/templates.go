// Package web は画面の描画とフォーム処理を行う HTTP ハンドラーを提供します。
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// LoadTemplates は埋め込みテンプレートをルーターに登録します。
func LoadTemplates(router *gin.Engine) error {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)
	return nil
}

// StaticFS は /static で配信するファイルシステムを返します。
func StaticFS() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// page はテンプレートに渡す共通の値を用意します。
func page(title string) gin.H {
	return gin.H{
		"Title":    title,
		"Error":    "",
		"Email":    "",
		"Username": "",
	}
}
