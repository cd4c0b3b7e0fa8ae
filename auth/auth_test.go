package auth

import (
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"concord/db"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "auth_test.sqlite")
	database, err := db.InitSQLite(dbPath)
	require.NoError(t, err)

	prev := db.DB
	db.DB = database
	t.Cleanup(func() {
		database.Close()
		db.DB = prev
	})

	require.NoError(t, db.EnsureSchema())
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/register", HandleRegister)
	r.POST("/login", HandleLogin)
	r.POST("/logout", HandleLogout)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	setupTestDB(t)
	t.Setenv("JWT_SECRET", "test-secret")
	r := newRouter()

	w := postJSON(r, "/register", `{"username": "alice", "password": "hunter2"}`)
	require.Equal(t, 201, w.Code, w.Body.String())

	w = postJSON(r, "/login", `{"username": "alice", "password": "hunter2"}`)
	require.Equal(t, 200, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), "auth_token")

	// Passwords are stored hashed, never as submitted.
	var stored string
	require.NoError(t, db.DB.QueryRow(`SELECT password FROM users WHERE username = 'alice'`).Scan(&stored))
	require.NotEqual(t, "hunter2", stored)
}

func TestLoginWrongPassword(t *testing.T) {
	setupTestDB(t)
	t.Setenv("JWT_SECRET", "test-secret")
	r := newRouter()

	w := postJSON(r, "/register", `{"username": "alice", "password": "hunter2"}`)
	require.Equal(t, 201, w.Code)

	w = postJSON(r, "/login", `{"username": "alice", "password": "wrong"}`)
	require.Equal(t, 400, w.Code)

	w = postJSON(r, "/login", `{"username": "nobody", "password": "hunter2"}`)
	require.Equal(t, 400, w.Code)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	setupTestDB(t)
	r := newRouter()

	w := postJSON(r, "/register", `{"username": "alice", "password": "hunter2"}`)
	require.Equal(t, 201, w.Code)

	w = postJSON(r, "/register", `{"username": "alice", "password": "other"}`)
	require.Equal(t, 400, w.Code)
	require.Contains(t, w.Body.String(), "already taken")
}

func TestRequireUserSources(t *testing.T) {
	setupTestDB(t)
	gin.SetMode(gin.TestMode)

	r := gin.New()
	handler := func(c *gin.Context) {
		c.JSON(200, gin.H{"user_id": c.GetInt64("userID")})
	}
	r.POST("/body", RequireUser(), handler)
	r.GET("/query", RequireUser(), handler)
	r.GET("/param/:user_id", RequireUser(), handler)

	w := postJSON(r, "/body", `{"user_id": 7, "name": "x"}`)
	require.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), `"user_id":7`)

	w = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/query?user_id=8", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), `"user_id":8`)

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/param/9", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), `"user_id":9`)

	w = postJSON(r, "/body", `{"name": "x"}`)
	require.Equal(t, 401, w.Code)
}

func TestRequireUserLeavesBodyReadable(t *testing.T) {
	setupTestDB(t)
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/echo", RequireUser(), func(c *gin.Context) {
		var json struct {
			Name   string `json:"name" binding:"required"`
			UserID int64  `json:"user_id"`
		}
		if err := c.ShouldBindJSON(&json); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"name": json.Name})
	})

	w := postJSON(r, "/echo", `{"user_id": 7, "name": "hello"}`)
	require.Equal(t, 200, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), "hello")
}
