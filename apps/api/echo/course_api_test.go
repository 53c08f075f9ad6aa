package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/clms-app/clms/apps/api/echo"
	"github.com/clms-app/clms/core/course"
	"github.com/clms-app/clms/testutil"
)

func Test_courseApi_subjects(t *testing.T) {
	a := setup(t)
	tchr := testutil.CreateTeacher(t, a.usrRepo, "Mrs Teach", "teach@school.io", "")
	other := testutil.CreateTeacher(t, a.usrRepo, "Mr Other", "other@school.io", "")
	stdt := testutil.CreateStudent(t, a.usrRepo, "Ana", "ana@school.io", "123456789012", "", 0)

	math := testutil.CreateSubject(t, a.courseRepo, tchr.ID, "Math")
	lesson := testutil.CreateLesson(t, a.courseRepo, math.ID, "Fractions")
	math.Lessons = []course.Lesson{lesson}
	history := testutil.CreateSubject(t, a.courseRepo, other.ID, "History")

	tchrToken := a.token(t, tchr.Identity())

	a.run(t, []httpTest{
		{name: "auth required", path: "/api/subjects", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "teacher required", path: "/api/subjects", token: a.token(t, stdt.Identity()), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "own subjects with lessons", path: "/api/subjects", token: tchrToken, wantCode: http.StatusOK, wantData: marchallList(t, math)},
		{name: "other teacher's subjects", path: "/api/subjects", token: a.token(t, other.Identity()), wantCode: http.StatusOK, wantData: marchallList(t, history)},
		{
			name: "create: invalid", method: http.MethodPost, path: "/api/subjects", token: tchrToken,
			body:     marchallObj(t, map[string]string{"title": "  "}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"title": "this field is required"}),
		},
		{
			name: "update: not owner", method: http.MethodPut, path: "/api/subjects/" + history.ID, token: tchrToken,
			body:     marchallObj(t, map[string]string{"title": "Stolen"}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "subject not found"}),
		},
		{
			name: "update: malformed id", method: http.MethodPut, path: "/api/subjects/42", token: tchrToken,
			body:     marchallObj(t, map[string]string{"title": "Algebra"}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "subject not found"}),
		},
		{
			name: "delete: not owner", method: http.MethodDelete, path: "/api/subjects/" + history.ID, token: tchrToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "subject not found"}),
		},
	})

	t.Run("create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/subjects", tchrToken, marchallObj(t, map[string]string{"title": "Science"}))
		a.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp SubjectResponse
		unmarshal(t, rec, &resp)
		assert.Equal(t, "Subject created", resp.Message)
		assert.Equal(t, "Science", resp.Subject.Title)
		assert.Equal(t, tchr.ID, resp.Subject.TeacherID)
		assert.Empty(t, resp.Subject.Lessons)
	})

	t.Run("update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/subjects/"+math.ID, tchrToken, marchallObj(t, map[string]string{"title": "Algebra"}))
		a.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp SubjectResponse
		unmarshal(t, rec, &resp)
		assert.Equal(t, "Algebra", resp.Subject.Title)
		assert.Len(t, resp.Subject.Lessons, 1)
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/subjects/"+math.ID, tchrToken)
		a.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		_, err := a.courseRepo.GetLessonByID(req.Context(), lesson.ID)
		assert.Equal(t, course.ErrLessonNotFound, err, "lessons are deleted along")
	})
}

func Test_courseApi_lessons(t *testing.T) {
	a := setup(t)
	tchr := testutil.CreateTeacher(t, a.usrRepo, "Mrs Teach", "teach@school.io", "")
	other := testutil.CreateTeacher(t, a.usrRepo, "Mr Other", "other@school.io", "")
	stdt := testutil.CreateStudent(t, a.usrRepo, "Ana", "ana@school.io", "123456789012", "", 0)

	math := testutil.CreateSubject(t, a.courseRepo, tchr.ID, "Math")
	l1 := testutil.CreateLesson(t, a.courseRepo, math.ID, "Fractions")
	l2 := testutil.CreateLesson(t, a.courseRepo, math.ID, "Decimals")

	tchrToken := a.token(t, tchr.Identity())
	stdtToken := a.token(t, stdt.Identity())

	a.run(t, []httpTest{
		{name: "list: auth required", path: "/api/lessons/" + math.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "list: student", path: "/api/lessons/" + math.ID, token: stdtToken, wantCode: http.StatusOK, wantData: marchallList(t, l1, l2)},
		{name: "list: any teacher", path: "/api/lessons/" + math.ID, token: a.token(t, other.Identity()), wantCode: http.StatusOK, wantData: marchallList(t, l1, l2)},
		{
			name: "list: unknown subject", path: "/api/lessons/" + l1.ID, token: stdtToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "subject not found"}),
		},
		{
			name: "create: student", method: http.MethodPost, path: "/api/lessons", token: stdtToken,
			body:     marchallObj(t, course.NewLesson{Title: "Nope", SubjectID: math.ID}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "create: invalid", method: http.MethodPost, path: "/api/lessons", token: tchrToken,
			body:     marchallObj(t, course.NewLesson{Title: "Nope", SubjectID: "42"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"subject_id": "subject_id must be a valid UUID"}),
		},
		{
			name: "create: subject of another teacher", method: http.MethodPost, path: "/api/lessons", token: a.token(t, other.Identity()),
			body:     marchallObj(t, course.NewLesson{Title: "Nope", SubjectID: math.ID}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "subject not found"}),
		},
		{
			name: "update: not owner", method: http.MethodPut, path: "/api/lessons/" + l1.ID, token: a.token(t, other.Identity()),
			body:     marchallObj(t, map[string]string{"title": "Stolen"}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "lesson not found"}),
		},
	})

	t.Run("create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/lessons", tchrToken,
			marchallObj(t, course.NewLesson{Title: "Percentages", Content: "%", SubjectID: math.ID}))
		a.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp LessonResponse
		unmarshal(t, rec, &resp)
		assert.Equal(t, "Lesson created", resp.Message)
		assert.Equal(t, math.ID, resp.Lesson.SubjectID)
		assert.Equal(t, "%", resp.Lesson.Content)
	})

	t.Run("update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/lessons/"+l2.ID, tchrToken, marchallObj(t, map[string]string{"title": "Decimal numbers"}))
		a.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LessonResponse
		unmarshal(t, rec, &resp)
		assert.Equal(t, "Decimal numbers", resp.Lesson.Title)
		assert.Equal(t, l2.Content, resp.Lesson.Content)
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/lessons/"+l1.ID, tchrToken)
		a.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		req, rec = newAuthRequest(http.MethodDelete, "/api/lessons/"+l1.ID, tchrToken)
		a.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
