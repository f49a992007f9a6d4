package navigator

import (
	"strings"
)

type View string

const (
	ViewHome   View = "home"
	ViewResult View = "result"
)

type Route struct {
	Name  string
	Path  string
	Title string

	View View
}

// Navigator maps request paths to views. It carries no business logic.
type Navigator struct {
	routes []Route
}

func New(routes ...Route) *Navigator {
	return &Navigator{
		routes: routes,
	}
}

// Default returns the upload and result routes.
func Default() *Navigator {
	return New(
		Route{
			Name:  "home",
			Path:  "/",
			Title: "UnblurAI - 文字去模糊识别",

			View: ViewHome,
		},
		Route{
			Name:  "result",
			Path:  "/result",
			Title: "UnblurAI - 识别结果",

			View: ViewResult,
		},
	)
}

// Resolve returns the route bound to path. A single trailing slash is ignored.
func (n *Navigator) Resolve(path string) (Route, bool) {
	path = normalize(path)

	for _, r := range n.routes {
		if normalize(r.Path) == path {
			return r, true
		}
	}

	return Route{}, false
}

func (n *Navigator) Lookup(name string) (Route, bool) {
	for _, r := range n.routes {
		if r.Name == name {
			return r, true
		}
	}

	return Route{}, false
}

func (n *Navigator) Routes() []Route {
	return append([]Route(nil), n.routes...)
}

func normalize(path string) string {
	if path == "" {
		return "/"
	}

	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	return path
}
