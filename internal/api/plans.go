package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"seatplan/internal/domain"
	"seatplan/internal/export"
	"seatplan/internal/service"
)

func (s *Server) apiPlanRouter() chi.Router {
	r := chi.NewRouter()
	r.Post("/", s.apiPlanCreate)
	r.Route("/{planID}", func(r chi.Router) {
		r.Use(s.idCtx("planID", ctxPlanID))
		r.Get("/", s.apiPlanGet)
		r.Delete("/", s.apiPlanDelete)
		r.Put("/activate", s.apiPlanActivate)
		r.Post("/duplicate", s.apiPlanDuplicate)
		r.Post("/reset", s.apiPlanReset)
		r.Put("/positions", s.apiPlanPutPositions)
		r.Delete("/positions/{studentID}", s.apiPlanDeletePosition)
		r.Put("/furniture", s.apiPlanPutFurniture)
		r.Delete("/furniture/{itemID}", s.apiPlanDeleteFurniture)
		r.Get("/export.svg", s.apiPlanExportSVG)
	})
	return r
}

// PlanIDView answers plan creation and duplication.
type PlanIDView struct {
	PlanID int64 `json:"plan_id"`
}

func (v *PlanIDView) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, http.StatusCreated)
	return nil
}

type createPlanRequest struct {
	service.CreatePlanInput
}

func (req *createPlanRequest) Bind(r *http.Request) error {
	if req.ClassroomID <= 0 {
		return errors.New("missing classroom_id")
	}
	return nil
}

func (s *Server) apiPlanCreate(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, httpErrInvalidRequest(err))
		return
	}
	p, err := s.plans.CreatePlan(r.Context(), req.CreatePlanInput)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.Render(w, r, &PlanIDView{PlanID: p.ID})
}

func (s *Server) apiPlanGet(w http.ResponseWriter, r *http.Request) {
	b, err := s.plans.Plan(r.Context(), ctxID(r.Context(), ctxPlanID))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, b)
}

func (s *Server) apiPlanDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.plans.DeletePlan(r.Context(), ctxID(r.Context(), ctxPlanID)); err != nil {
		s.renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (s *Server) apiPlanActivate(w http.ResponseWriter, r *http.Request) {
	if err := s.plans.ActivatePlan(r.Context(), ctxID(r.Context(), ctxPlanID)); err != nil {
		s.renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (s *Server) apiPlanDuplicate(w http.ResponseWriter, r *http.Request) {
	p, err := s.plans.DuplicatePlan(r.Context(), ctxID(r.Context(), ctxPlanID))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.Render(w, r, &PlanIDView{PlanID: p.ID})
}

type resetRequest struct {
	Full bool `json:"full"`
}

func (req *resetRequest) Bind(r *http.Request) error { return nil }

func (s *Server) apiPlanReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if r.ContentLength != 0 {
		if err := render.Bind(r, &req); err != nil {
			render.Render(w, r, httpErrInvalidRequest(err))
			return
		}
	}
	res, err := s.plans.ResetPlan(r.Context(), ctxID(r.Context(), ctxPlanID), req.Full)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, res)
}

/* Layout records */
type positionsRequest struct {
	Positions []domain.PositionRecord `json:"positions"`
}

func (req *positionsRequest) Bind(r *http.Request) error {
	if req.Positions == nil {
		return errors.New("missing positions")
	}
	return nil
}

func (s *Server) apiPlanPutPositions(w http.ResponseWriter, r *http.Request) {
	var req positionsRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, httpErrInvalidRequest(err))
		return
	}
	if err := s.plans.UpsertPositions(r.Context(), ctxID(r.Context(), ctxPlanID), req.Positions); err != nil {
		s.renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (s *Server) apiPlanDeletePosition(w http.ResponseWriter, r *http.Request) {
	studentID, err := urlID(r, "studentID")
	if err != nil {
		render.Render(w, r, httpErrInvalidRequest(err))
		return
	}
	if err := s.plans.DeletePosition(r.Context(), ctxID(r.Context(), ctxPlanID), studentID); err != nil {
		s.renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

type furnitureRequest struct {
	Furniture []domain.FurnitureRecord `json:"furniture"`
}

func (req *furnitureRequest) Bind(r *http.Request) error {
	if req.Furniture == nil {
		return errors.New("missing furniture")
	}
	return nil
}

// apiPlanPutFurniture updates rows with an id and inserts the rest, keyed on
// client_uid so a replayed creation updates the earlier row.
func (s *Server) apiPlanPutFurniture(w http.ResponseWriter, r *http.Request) {
	var req furnitureRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, httpErrInvalidRequest(err))
		return
	}
	if err := s.plans.UpsertFurniture(r.Context(), ctxID(r.Context(), ctxPlanID), req.Furniture); err != nil {
		s.renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (s *Server) apiPlanDeleteFurniture(w http.ResponseWriter, r *http.Request) {
	itemID, err := urlID(r, "itemID")
	if err != nil {
		render.Render(w, r, httpErrInvalidRequest(err))
		return
	}
	if err := s.plans.DeleteFurniture(r.Context(), ctxID(r.Context(), ctxPlanID), itemID); err != nil {
		s.renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (s *Server) apiPlanExportSVG(w http.ResponseWriter, r *http.Request) {
	b, err := s.plans.Plan(r.Context(), ctxID(r.Context(), ctxPlanID))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	out, err := export.SVG(b, s.catalog, export.Options{Margin: 16})
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(out)
}
