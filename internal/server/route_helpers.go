package server

import "net/http"

// RouteHandler is a function type for HTTP handlers.
type RouteHandler func(http.ResponseWriter, *http.Request)

// MethodRouter maps HTTP methods to handlers.
type MethodRouter map[string]RouteHandler

// RouteByMethod routes requests based on HTTP method.
func RouteByMethod(w http.ResponseWriter, r *http.Request, routes MethodRouter) {
	handler, ok := routes[r.Method]
	if !ok {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	handler(w, r)
}

// RouteResourceCollection handles the form + submit pattern.
// GET (and HEAD) -> show, POST -> submit.
func RouteResourceCollection(w http.ResponseWriter, r *http.Request, show, submit RouteHandler) {
	routes := make(MethodRouter)
	if show != nil {
		routes[http.MethodGet] = show
		routes[http.MethodHead] = show
	}
	if submit != nil {
		routes[http.MethodPost] = submit
	}
	RouteByMethod(w, r, routes)
}
