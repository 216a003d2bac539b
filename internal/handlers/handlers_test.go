package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"naturequest/internal/activity"
	"naturequest/internal/config"
	"naturequest/internal/database"
	"naturequest/internal/models"
	"naturequest/internal/roster"
	"naturequest/internal/service"
)

type apiFixture struct {
	mux     *http.ServeMux
	store   *roster.Store
	auth    *service.AuthService
	teacher string
	student string
}

func newAPIFixture(t *testing.T, users *service.UserService) *apiFixture {
	t.Helper()
	store := roster.New(roster.Options{
		HashPassword: func(plain string) (string, error) { return "hashed:" + plain, nil },
	})
	cfg := &config.Config{JWTSecret: "test-secret", SessionDuration: time.Hour}
	authService := service.NewAuthService(cfg, nil)

	h := Handlers{
		Middleware: NewMiddleware(authService, nil),
		Auth:       NewAuthHandler(authService, store, "", ""),
		Roster:     NewRosterHandler(store, nil),
		Feed:       NewFeedHandler(store, activity.NewHub()),
		Admin:      NewAdminHandler(service.NewBackupService(store)),
	}
	if users != nil {
		h.Users = NewUserHandler(users)
	}
	mux := http.NewServeMux()
	RegisterRoutes(mux, h)

	f := &apiFixture{mux: mux, store: store, auth: authService}
	f.teacher = f.token(t, models.Principal{Subject: "teacher-1", Name: "Prof. Helena", Email: "helena@escola.edu.br", Role: models.RoleTeacher})
	f.student = f.token(t, models.Principal{Subject: "oid-ana", Name: "Ana", Email: "ana@escola.edu.br", Role: models.RoleStudent})
	return f
}

func (f *apiFixture) token(t *testing.T, p models.Principal) string {
	t.Helper()
	token, _, err := f.auth.IssueToken(p)
	require.NoError(t, err)
	return token
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

type response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) response[T] {
	t.Helper()
	var out response[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// seed creates a class with Ana as its student and returns both
func (f *apiFixture) seed(t *testing.T) (models.Class, StudentView) {
	t.Helper()
	rec := f.do(t, "POST", "/api/classes", f.teacher, map[string]string{"name": "Ciências 7A"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	class := decode[models.Class](t, rec).Data

	rec = f.do(t, "POST", "/api/students", f.teacher, map[string]string{
		"name": "Ana", "email": "ana@escola.edu.br", "classId": class.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return class, decode[StudentView](t, rec).Data
}

func TestAuthGuards(t *testing.T) {
	f := newAPIFixture(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", "GET", "/api/classes", "", http.StatusUnauthorized},
		{"bad token", "GET", "/api/classes", "garbage", http.StatusUnauthorized},
		{"student reads", "GET", "/api/classes", f.student, http.StatusOK},
		{"student cannot create", "POST", "/api/classes", f.student, http.StatusForbidden},
		{"student cannot export", "GET", "/api/admin/export", f.student, http.StatusForbidden},
		{"health is public", "GET", "/health", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.token, `{"name": "7A"}`)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.want == http.StatusOK, decode[any](t, rec).Success)
		})
	}
}

func TestClassAndStudentRoutes(t *testing.T) {
	f := newAPIFixture(t, nil)
	class, ana := f.seed(t)

	assert.Regexp(t, `^NQCIN[A-Z0-9]{4}$`, class.InviteCode)
	assert.Equal(t, "teacher-1", class.TeacherID)
	assert.Equal(t, 1, ana.Level)

	t.Run("password hash never leaves the server", func(t *testing.T) {
		rec := f.do(t, "POST", "/api/students/"+ana.ID+"/reset-password", f.teacher, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[map[string]string](t, rec).Data["password"], 8)

		rec = f.do(t, "GET", "/api/students?classId="+class.ID, f.teacher, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "passwordHash")
		assert.NotContains(t, rec.Body.String(), "hashed:")
	})

	t.Run("class students", func(t *testing.T) {
		rec := f.do(t, "GET", "/api/classes/"+class.ID+"/students", f.student, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]StudentView](t, rec).Data, 1)

		rec = f.do(t, "GET", "/api/classes/missing/students", f.student, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("patches", func(t *testing.T) {
		rec := f.do(t, "PUT", "/api/classes/"+class.ID, f.teacher, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = f.do(t, "PUT", "/api/classes/"+class.ID, f.teacher, map[string]string{"name": "Ciências 7B"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Ciências 7B", decode[models.Class](t, rec).Data.Name)

		rec = f.do(t, "PUT", "/api/students/"+ana.ID, f.teacher, map[string]string{"avatar": "owl"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "owl", decode[StudentView](t, rec).Data.Avatar)

		rec = f.do(t, "PUT", "/api/classes/"+class.ID, f.teacher, "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("punishment", func(t *testing.T) {
		rec := f.do(t, "POST", "/api/students/"+ana.ID+"/punishments", f.teacher, map[string]any{
			"type": "warning", "reason": "Conversa durante a prova",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Len(t, decode[StudentView](t, rec).Data.Punishments, 1)

		rec = f.do(t, "POST", "/api/students/"+ana.ID+"/punishments", f.teacher, map[string]any{"type": "detention"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete cascades", func(t *testing.T) {
		rec := f.do(t, "DELETE", "/api/classes/"+class.ID, f.teacher, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, "GET", "/api/classes", f.teacher, nil)
		assert.Empty(t, decode[[]models.Class](t, rec).Data)
	})
}

func TestMissionCompletionRoutes(t *testing.T) {
	f := newAPIFixture(t, nil)
	class, ana := f.seed(t)

	rec := f.do(t, "POST", "/api/missions", f.teacher, map[string]any{
		"title": "Exploradores da Célula", "type": "weekly", "subject": "biology",
		"difficulty": "medium", "xpReward": 250, "classId": class.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	mission := decode[models.Mission](t, rec).Data

	path := "/api/missions/" + mission.ID + "/complete"

	rec = f.do(t, "POST", path, f.student, map[string]string{"studentId": "student-someone-else"})
	assert.Equal(t, http.StatusForbidden, rec.Code, "students only complete for themselves")

	rec = f.do(t, "POST", path, f.student, map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decode[CompletionView](t, rec).Data
	assert.Equal(t, ana.ID, done.Student.ID)
	assert.Equal(t, 250, done.XPEarned)
	assert.Equal(t, 2, done.LevelsGained)
	assert.Equal(t, 3, done.Student.Level)
	assert.Equal(t, 225, done.Student.XPToNextLevel)

	rec = f.do(t, "POST", path, f.teacher, map[string]string{"studentId": ana.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "second completion is rejected")

	rec = f.do(t, "POST", path, f.teacher, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "staff must name the student")

	rec = f.do(t, "POST", "/api/missions/missing/complete", f.teacher, map[string]string{"studentId": ana.ID})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	t.Run("leaderboard", func(t *testing.T) {
		rec := f.do(t, "GET", "/api/leaderboard?classId="+class.ID, f.student, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		board := decode[[]models.LeaderboardEntry](t, rec).Data
		require.Len(t, board, 1)
		assert.Equal(t, 1, board[0].Rank)
		assert.Equal(t, 3, board[0].Level)
	})

	t.Run("activity", func(t *testing.T) {
		rec := f.do(t, "GET", "/api/activity?limit=abc", f.student, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		feed := decode[[]models.ActivityLog](t, rec).Data
		require.Len(t, feed, 3)
		assert.Equal(t, models.ActivityMissionCompleted, feed[0].Type)

		rec = f.do(t, "GET", "/api/activity?limit=1", f.student, nil)
		assert.Len(t, decode[[]models.ActivityLog](t, rec).Data, 1)
	})

	t.Run("profile", func(t *testing.T) {
		rec := f.do(t, "GET", "/auth/profile", f.student, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		profile := decode[profileView](t, rec).Data
		assert.Equal(t, models.RoleStudent, profile.Principal.Role)
		require.NotNil(t, profile.Student)
		assert.Equal(t, ana.ID, profile.Student.ID)

		rec = f.do(t, "GET", "/auth/profile", f.teacher, nil)
		assert.Nil(t, decode[profileView](t, rec).Data.Student)
	})
}

func TestGuildRoutes(t *testing.T) {
	f := newAPIFixture(t, nil)
	class, ana := f.seed(t)

	rec := f.do(t, "POST", "/api/guilds", f.teacher, map[string]string{
		"name": "Guerreiros do Vapor", "classId": class.ID, "emblem": "unicorn", "color": "#B87333",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "POST", "/api/guilds", f.teacher, map[string]string{
		"name": "Guerreiros do Vapor", "classId": class.ID, "emblem": "gear", "color": "#B87333",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	guild := decode[models.Guild](t, rec).Data
	base := "/api/guilds/" + guild.ID

	rec = f.do(t, "POST", base+"/members", f.teacher, map[string]string{"studentId": ana.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{ana.ID}, decode[models.Guild](t, rec).Data.Members)

	rec = f.do(t, "PUT", base+"/leader", f.teacher, map[string]string{"studentId": ana.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ana.ID, decode[models.Guild](t, rec).Data.LeaderID)

	rec = f.do(t, "GET", "/api/leaderboard/guilds?classId="+class.ID, f.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.GuildStanding](t, rec).Data, 1)

	rec = f.do(t, "DELETE", base+"/members/"+ana.ID, f.teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[models.Guild](t, rec).Data.Members)

	rec = f.do(t, "POST", "/api/guilds/missing/members", f.teacher, map[string]string{"studentId": ana.ID})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, "DELETE", base, f.teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, "GET", "/api/guilds", f.teacher, nil)
	assert.Empty(t, decode[[]models.Guild](t, rec).Data)
}

func TestItemRoutes(t *testing.T) {
	f := newAPIFixture(t, nil)
	_, ana := f.seed(t)

	rec := f.do(t, "GET", "/api/items", f.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Item](t, rec).Data, 5)

	rec = f.do(t, "POST", "/api/items/give", f.teacher, map[string]any{"studentId": ana.ID, "itemId": "item-4", "quantity": "2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	given := decode[StudentView](t, rec).Data
	require.Len(t, given.Inventory, 1)
	assert.Equal(t, 2, given.Inventory[0].Quantity)

	rec = f.do(t, "POST", "/api/items/give", f.teacher, map[string]any{"studentId": ana.ID, "itemId": "item-4", "quantity": "lots"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "POST", "/api/items/give", f.teacher, map[string]any{"studentId": ana.ID, "itemId": "item-5"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, "POST", "/api/items/give", f.student, map[string]any{"studentId": ana.ID, "itemId": "item-5"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, "POST", "/api/items/equip", f.student, map[string]string{"itemId": "item-5"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "item-5", decode[StudentView](t, rec).Data.EquippedItems[models.SlotBody])

	rec = f.do(t, "GET", "/api/students/"+ana.ID+"/inventory", f.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	inv := decode[StudentInventoryView](t, rec).Data
	assert.Len(t, inv.Items, 2)
	assert.Equal(t, 8, inv.Stats.Constitution)

	rec = f.do(t, "POST", "/api/items/unequip", f.student, map[string]string{"itemId": "item-5"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[StudentView](t, rec).Data.EquippedItems)

	rec = f.do(t, "POST", "/api/items/equip", f.teacher, map[string]string{"studentId": ana.ID, "itemId": "item-404"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminBackupRoutes(t *testing.T) {
	f := newAPIFixture(t, nil)
	class, _ := f.seed(t)

	rec := f.do(t, "GET", "/api/admin/export", f.teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "naturequest_backup_")
	exported := rec.Body.String()

	rec = f.do(t, "POST", "/api/admin/import", f.teacher, `{"classes": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid file", decode[any](t, rec).Error)

	rec = f.do(t, "DELETE", "/api/classes/"+class.ID, f.teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, "POST", "/api/admin/import", f.teacher, exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[map[string]int](t, rec).Data["students"])

	_, err := f.store.Class(class.ID)
	assert.NoError(t, err)
}

func TestMicrosoftLoginRoutes(t *testing.T) {
	f := newAPIFixture(t, nil)
	rec := f.do(t, "GET", "/auth/microsoft/start", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "login is disabled without client credentials")

	cfg := &config.Config{
		JWTSecret:         "test-secret",
		SessionDuration:   time.Hour,
		AzureClientID:     "client-123",
		AzureClientSecret: "shh",
		AzureTenantID:     "tenant-1",
	}
	h := NewAuthHandler(service.NewAuthService(cfg, nil), nil, "https://naturequest.example", "")

	start := httptest.NewRecorder()
	h.StartMicrosoftLogin(start, httptest.NewRequest("GET", "/auth/microsoft/start", nil))
	require.Equal(t, http.StatusFound, start.Code)
	location := start.Header().Get("Location")
	assert.Contains(t, location, "login.microsoftonline.com/tenant-1/")
	assert.Contains(t, location, "redirect_uri=https%3A%2F%2Fnaturequest.example%2Fauth%2Fmicrosoft%2Fcallback")

	var state *http.Cookie
	for _, c := range start.Result().Cookies() {
		if c.Name == stateCookie {
			state = c
		}
	}
	require.NotNil(t, state)

	req := httptest.NewRequest("GET", "/auth/microsoft/callback?code=abc&state=forged", nil)
	req.AddCookie(state)
	callback := httptest.NewRecorder()
	h.MicrosoftCallback(callback, req)
	assert.Equal(t, http.StatusBadRequest, callback.Code)

	callback = httptest.NewRecorder()
	h.MicrosoftCallback(callback, httptest.NewRequest("GET", "/auth/microsoft/callback?error=access_denied", nil))
	assert.Equal(t, http.StatusUnauthorized, callback.Code)
}

func TestUsersRoutes(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "naturequest_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), "../../migrations"))
	users := service.NewUserService(db)
	require.NoError(t, users.SeedItems(context.Background()))

	f := newAPIFixture(t, users)
	body := map[string]string{"id": "oid-ana", "email": "ana@escola.edu.br", "name": "Ana", "role": "student"}

	rec := f.do(t, "POST", "/api/users", f.student, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, "POST", "/api/users", f.teacher, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "user created", decode[models.User](t, rec).Message)

	rec = f.do(t, "POST", "/api/users", f.teacher, body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user updated", decode[models.User](t, rec).Message)

	rec = f.do(t, "POST", "/api/users/oid-ana/xp", f.teacher, map[string]any{"xpAmount": "250"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	leveled := decode[models.User](t, rec)
	assert.Equal(t, "level up", leveled.Message)
	assert.Equal(t, 3, leveled.Data.Level)

	rec = f.do(t, "POST", "/api/users/oid-ana/xp", f.teacher, map[string]any{"xpAmount": "many"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "POST", "/api/users/oid-ana/inventory", f.teacher, map[string]any{"itemId": "item-4", "quantity": 3})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inv := decode[[]models.InventoryView](t, rec).Data
	require.Len(t, inv, 1)
	assert.Equal(t, 3, inv[0].Quantity)

	rec = f.do(t, "GET", "/api/users/nobody", f.student, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, "DELETE", "/api/users/oid-ana", f.teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, "GET", "/api/users/oid-ana", f.teacher, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
