package render

import (
	"bytes"
	"html/template"
	"io/fs"
	"log"
	"net/http"
)

type Templates struct {
	templates *template.Template
}

func (tmpls *Templates) SetFS(fsys fs.FS) {
	tmpls.templates = template.Must(template.ParseFS(fsys, "templates/*"))
}

func (tmpls *Templates) RenderHTML(w http.ResponseWriter, tmplName string, data interface{}) {
	buff := bytes.NewBuffer([]byte{})
	err := tmpls.templates.ExecuteTemplate(buff, tmplName, data)
	if err != nil {
		log.Println(err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Add("Content-Type", "text/html")
	w.Write(buff.Bytes())
}

func GetTemplates() Templates {
	return Templates{}
}
