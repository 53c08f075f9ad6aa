package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/clms-app/clms/apps/api/echo"
	"github.com/clms-app/clms/core"
	"github.com/clms-app/clms/core/course"
	"github.com/clms-app/clms/core/gamification"
	"github.com/clms-app/clms/core/user"
	emailsvc "github.com/clms-app/clms/services/email"
	"github.com/clms-app/clms/storage/database/dummy"
	"github.com/clms-app/clms/testutil"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errInvalidToken = httpErr{Error: "invalid or expired jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type app struct {
	*Server
	conf       *core.Config
	db         *dummydb.DB
	usrRepo    user.Repository
	courseRepo course.Repository
	store      gamification.Store
	logger     *testutil.Logger
}

func setup(t *testing.T) *app {
	t.Helper()

	conf := core.NewTestConfig()
	logger := new(testutil.Logger)
	validate, translator := testutil.NewValidator()
	user.LoadCommonPasswords(logger)

	db := dummydb.Open()
	a := &app{
		conf:       conf,
		db:         db,
		usrRepo:    dummydb.NewUserRepository(db),
		courseRepo: dummydb.NewCourseRepository(db),
		store:      dummydb.NewGamificationStore(db),
		logger:     logger,
	}
	testutil.SeedBadges(t, a.store)
	emailsvc.ResetSentMessages()

	a.Server = NewServer(ServerDeps{
		Conf:      conf,
		Logger:    logger,
		UserSvc:   user.NewService(a.usrRepo, validate),
		CourseSvc: course.NewService(a.courseRepo, validate),
		GamificationSvc: gamification.NewService(a.store, gamification.Options{
			Conf:     conf,
			Logger:   logger,
			Validate: validate,
			MailSvc:  emailsvc.NewConsoleServiceMock(conf, logger),
		}),
		Translator:     translator,
		DisableReqLogs: true,
	})
	return a
}

func (a *app) token(t *testing.T, identity core.Identity) string {
	t.Helper()
	token, err := GenerateToken(a.conf, NewClaims(a.conf, identity))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (a *app) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			a.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "body: %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
