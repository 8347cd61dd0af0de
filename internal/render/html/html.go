// Package html renders a chat history as the browser chat page. Message
// bodies are markdown rendered through goldmark with raw HTML disabled.
package html

import (
	"bytes"
	"embed"
	"html/template"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/zhouzirui/mindchat/backend/internal/analysis/crisis"
	"github.com/zhouzirui/mindchat/backend/internal/model/chat"
	"github.com/zhouzirui/mindchat/backend/internal/model/mode"
	"github.com/zhouzirui/mindchat/backend/internal/render"
)

//go:embed templates/*.html
var content embed.FS

// DefaultTitle heads the chat page.
const DefaultTitle = "Mental Health Chatbot"

// Renderer renders the chat page.
type Renderer struct {
	md   goldmark.Markdown
	tmpl *template.Template
}

// New creates a Renderer with GFM enabled.
func New() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)

	tmpl := template.Must(template.New("page.html").ParseFS(content, "templates/*.html"))

	return &Renderer{md: md, tmpl: tmpl}
}

// Page carries everything the chat page shows besides the turns.
type Page struct {
	Title       string
	FormAction  string
	// ResetAction, when set, shows a button that ends the conversation and
	// hides the mode select: a running conversation keeps its mode.
	ResetAction string
	Mode        mode.Mode
	Modes       []mode.Mode
	Crisis      *crisis.Assessment
}

type turnData struct {
	render.TurnView
	Body template.HTML
}

type pageData struct {
	Page
	Turns []turnData
}

// Render writes the page for history using default page settings.
func (r *Renderer) Render(w io.Writer, history chat.History) error {
	return r.RenderPage(w, history, Page{})
}

// RenderPage writes the page for history.
func (r *Renderer) RenderPage(w io.Writer, history chat.History, page Page) error {
	if page.Title == "" {
		page.Title = DefaultTitle
	}
	if page.FormAction == "" {
		page.FormAction = "/chat"
	}

	view := render.Build(history)
	turns := make([]turnData, 0, len(view.Turns))
	for _, tv := range view.Turns {
		body, err := r.markdown(tv.Message)
		if err != nil {
			return err
		}
		turns = append(turns, turnData{TurnView: tv, Body: body})
	}

	return r.tmpl.ExecuteTemplate(w, "page.html", pageData{Page: page, Turns: turns})
}

func (r *Renderer) markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	// Raw HTML in src is dropped by goldmark's default renderer.
	return template.HTML(buf.String()), nil
}
