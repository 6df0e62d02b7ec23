package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"seatplan/internal/catalog"
)

// CatalogItemView is one palette entry.
type CatalogItemView struct {
	catalog.Item
}

func (v *CatalogItemView) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (s *Server) apiCatalogRouter() chi.Router {
	r := chi.NewRouter()
	r.Get("/", s.apiCatalogGetAll)
	return r
}

func (s *Server) apiCatalogGetAll(w http.ResponseWriter, r *http.Request) {
	outs := []render.Renderer{}
	for _, it := range s.catalog.Items() {
		outs = append(outs, &CatalogItemView{Item: it})
	}
	render.RenderList(w, r, outs)
}
