package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"seatplan/internal/domain"
)

func (s *Server) apiClassroomRouter() chi.Router {
	r := chi.NewRouter()
	r.Route("/{classroomID}", func(r chi.Router) {
		r.Use(s.idCtx("classroomID", ctxClassroomID))
		r.Get("/plans", s.apiClassroomGetPlans)
		r.Get("/students", s.apiClassroomGetStudents)
		r.Put("/students", s.apiClassroomPutStudents)
	})
	return r
}

// apiClassroomGetPlans returns the plan list, the roster and the layout of
// ?plan_id, or of the active plan.
func (s *Server) apiClassroomGetPlans(w http.ResponseWriter, r *http.Request) {
	classroomID := ctxID(r.Context(), ctxClassroomID)

	var planID *int64
	if v := r.URL.Query().Get("plan_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			render.Render(w, r, httpErrInvalidRequest(errors.New("bad plan_id query")))
			return
		}
		planID = &id
	}

	b, err := s.plans.Bundle(r.Context(), classroomID, planID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, b)
}

func (s *Server) apiClassroomGetStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.plans.Students(r.Context(), ctxID(r.Context(), ctxClassroomID))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, students)
}

type studentsRequest struct {
	Students []domain.Student `json:"students"`
}

func (req *studentsRequest) Bind(r *http.Request) error {
	if req.Students == nil {
		return errors.New("missing students")
	}
	return nil
}

func (s *Server) apiClassroomPutStudents(w http.ResponseWriter, r *http.Request) {
	var req studentsRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, httpErrInvalidRequest(err))
		return
	}
	classroomID := ctxID(r.Context(), ctxClassroomID)
	for i := range req.Students {
		req.Students[i].ClassroomID = classroomID
	}
	if err := s.plans.UpsertStudents(r.Context(), classroomID, req.Students); err != nil {
		s.renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}
