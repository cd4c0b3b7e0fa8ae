package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"concord/auth"
	"concord/chat"
	"concord/community"
	"concord/db"
	"concord/media"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func rateLimitErrorHandler(c *gin.Context, info ratelimit.Info) {
	c.String(429, "Too many requests. Try again in "+time.Until(info.ResetTime).String())
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	port := envOr("PORT", "5000")
	dbName := envOr("DB_FILE", "./concord.db")
	tempDir := envOr("UPLOAD_TEMP_DIR", "./uploads")

	var err error
	db.DB, err = db.InitSQLite(dbName)
	if err != nil {
		log.Fatal("Error opening database:", err)
	}
	defer db.CloseDB(db.DB)
	if err := db.EnsureSchema(); err != nil {
		log.Fatal("Error ensuring schema:", err)
	}

	// Keep the connection warm the way the reference deployment did.
	keepAlive := time.NewTicker(5 * time.Minute)
	defer keepAlive.Stop()
	go func() {
		for range keepAlive.C {
			if _, err := db.DB.Exec("SELECT 1"); err != nil {
				log.Println("Database keep-alive failed:", err)
			}
		}
	}()

	var authz chat.Authorizer = chat.AllowAll{}
	if envOr("AUTHZ_MODE", "permissive") == "membership" {
		authz = chat.MembershipAuthorizer{}
	}

	registry := chat.NewRegistry()
	gateway := chat.NewGateway(registry, authz)
	messages := chat.NewMessageService(registry, authz)

	mediaStore, err := media.NewS3Store(context.Background(), media.S3Config{
		Endpoint:      envOr("S3_ENDPOINT", "http://localhost:9000"),
		Region:        envOr("S3_REGION", "us-east-1"),
		Bucket:        envOr("S3_BUCKET", "concord-media"),
		AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		SecretKey:     os.Getenv("S3_SECRET_KEY"),
		PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
	})
	if err != nil {
		log.Fatal("Error configuring media store:", err)
	}
	mediaHandlers := media.NewHandlers(mediaStore, tempDir)

	r := gin.Default()

	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{Rate: time.Second, Limit: 100})
	r.Use(ratelimit.RateLimiter(store, &ratelimit.Options{ErrorHandler: rateLimitErrorHandler, KeyFunc: keyFunc}))
	r.Use(cors.Default())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/ping", func(c *gin.Context) {
		if _, err := db.DB.Exec("SELECT 1"); err != nil {
			c.String(500, "Ping failed")
			return
		}
		c.String(200, "Ping + DB OK")
	})

	// Credentials
	r.POST("/register", auth.HandleRegister)
	r.POST("/login", auth.HandleLogin)
	r.POST("/logout", auth.HandleLogout)

	// Communities
	r.POST("/create-server", auth.RequireUser(), community.HandleCreateServer)
	r.GET("/server-invite/:id", community.HandleGetServerInvite)
	r.POST("/join-server", auth.RequireUser(), community.HandleJoinServer)
	r.GET("/servers/:user_id", auth.RequireUser(), community.HandleListServers)
	r.GET("/server-members/:id", community.HandleListServerMembers)

	// Channels
	r.POST("/create-channel", community.HandleCreateChannel)
	r.GET("/channels/:server_id", community.HandleListChannels)

	// Messaging
	r.POST("/send", messages.HandleSend)
	r.GET("/messages/:channel_id", chat.HandleGetMessages)

	// Media
	r.POST("/upload-image", mediaHandlers.HandleUploadImage)
	r.POST("/upload-video", mediaHandlers.HandleUploadVideo)
	r.DELETE("/delete-video", mediaHandlers.HandleDeleteVideo)

	// Real-time
	r.GET("/ws", gateway.HandleSocket)

	server := &http.Server{Addr: ":" + port, Handler: r}

	go func() {
		log.Printf("Starting concord on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
}
