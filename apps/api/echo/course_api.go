package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/clms-app/clms/core"
	"github.com/clms-app/clms/core/course"
)

type courseApi struct {
	svc *course.Service
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service) {
	api := courseApi{svc: svc}
	teacherOnly := roleMiddleware(core.RoleTeacher)

	sg := g.Group("/subjects", jwt, teacherOnly)
	sg.GET("", api.listSubjects)
	sg.POST("", api.createSubject)
	sg.PUT("/:id", api.updateSubject)
	sg.DELETE("/:id", api.deleteSubject)

	// GET takes a subject ID, PUT and DELETE a lesson ID
	lg := g.Group("/lessons", jwt)
	lg.POST("", api.createLesson, teacherOnly)
	lg.GET("/:id", api.listLessons, roleMiddleware(""))
	lg.PUT("/:id", api.updateLesson, teacherOnly)
	lg.DELETE("/:id", api.deleteLesson, teacherOnly)
}

// Handlers

func (api *courseApi) listSubjects(ctx echo.Context) error {
	subjects, err := api.svc.ListSubjects(ctx.Request().Context(), getContextIdentity(ctx))
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *courseApi) createSubject(ctx echo.Context) error {
	var data course.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	s, err := api.svc.CreateSubject(ctx.Request().Context(), getContextIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, SubjectResponse{Message: "Subject created", Subject: s})
}

func (api *courseApi) updateSubject(ctx echo.Context) error {
	var data course.UpdateSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	s, err := api.svc.UpdateSubject(ctx.Request().Context(), getContextIdentity(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, SubjectResponse{Message: "Subject updated", Subject: s})
}

func (api *courseApi) deleteSubject(ctx echo.Context) error {
	if err := api.svc.DeleteSubject(ctx.Request().Context(), getContextIdentity(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) createLesson(ctx echo.Context) error {
	var data course.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	l, err := api.svc.CreateLesson(ctx.Request().Context(), getContextIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, LessonResponse{Message: "Lesson created", Lesson: l})
}

func (api *courseApi) listLessons(ctx echo.Context) error {
	lessons, err := api.svc.ListLessons(ctx.Request().Context(), getContextIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing lessons")
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *courseApi) updateLesson(ctx echo.Context) error {
	var data course.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	l, err := api.svc.UpdateLesson(ctx.Request().Context(), getContextIdentity(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, LessonResponse{Message: "Lesson updated", Lesson: l})
}

func (api *courseApi) deleteLesson(ctx echo.Context) error {
	if err := api.svc.DeleteLesson(ctx.Request().Context(), getContextIdentity(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}
