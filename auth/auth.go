package auth

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"concord/db"
	"concord/types"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func generateJWT(userID int64, expirationTime time.Duration) (string, error) {
	jwtSecret := os.Getenv("JWT_SECRET")
	claims := jwt.MapClaims{
		"userID": userID,
		"exp":    time.Now().Add(expirationTime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

func hashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

func HandleRegister(c *gin.Context) {
	var json struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&json); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request data"})
		return
	}

	hashedPassword, err := hashPassword(json.Password)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to hash password"})
		return
	}

	query := `INSERT INTO users (username, password) VALUES (?, ?)`
	_, err = db.DB.Exec(query, json.Username, hashedPassword)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.username") {
			c.JSON(400, gin.H{"error": "Username is already taken"})
			return
		}
		c.JSON(500, gin.H{"error": "Database error inserting data"})
		return
	}

	c.JSON(201, gin.H{"message": "Successfully registered"})
}

func HandleLogin(c *gin.Context) {
	var json struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&json); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request data"})
		return
	}

	var user types.User
	query := `SELECT id, username, password FROM users WHERE username = ?`
	err := db.DB.QueryRow(query, json.Username).Scan(&user.ID, &user.Username, &user.Password)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(400, gin.H{"error": "Incorrect username or password"})
		} else {
			c.JSON(500, gin.H{"error": "Error extracting data"})
		}
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(json.Password))
	if err != nil {
		c.JSON(400, gin.H{"error": "Incorrect username or password"})
		return
	}

	token, err := generateJWT(user.ID, time.Hour*24)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to generate JWT token"})
		return
	}

	c.JSON(200, gin.H{"message": "Logged in", "user": user, "auth_token": token})
}

func HandleLogout(c *gin.Context) {
	// Tokens are held client-side; there is no server session to destroy.
	c.JSON(200, gin.H{"message": "Logged out"})
}

// RequireUser implements the reference trust model: the acting user id is
// taken from the path, query, or JSON body and accepted without verifying
// it against a credential. Authorization proper lives behind chat.Authorizer.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := userIDFromRequest(c)
		if userID == 0 {
			c.JSON(401, gin.H{"error": "Not logged in"})
			c.Abort()
			return
		}
		c.Set("userID", userID)
		c.Next()
	}
}

func userIDFromRequest(c *gin.Context) int64 {
	if raw := c.Param("user_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return id
		}
	}
	if raw := c.Query("user_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return id
		}
	}

	// Peek at a JSON body without consuming it for the handler.
	if c.Request.Body != nil && strings.Contains(c.ContentType(), "application/json") {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return 0
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))

		var body struct {
			UserID int64 `json:"user_id"`
		}
		if err := json.Unmarshal(raw, &body); err == nil {
			return body.UserID
		}
	}
	return 0
}
