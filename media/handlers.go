package media

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers exposes the upload/delete surface over an injected Store. Files
// are spooled to TempDir and removed on every path, success or failure.
type Handlers struct {
	Store   Store
	TempDir string
}

func NewHandlers(store Store, tempDir string) *Handlers {
	return &Handlers{Store: store, TempDir: tempDir}
}

func (h *Handlers) HandleUploadImage(c *gin.Context) {
	h.handleUpload(c, "image", KindImage)
}

func (h *Handlers) HandleUploadVideo(c *gin.Context) {
	h.handleUpload(c, "video", KindVideo)
}

func (h *Handlers) handleUpload(c *gin.Context, field string, want Kind) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		c.JSON(400, gin.H{"error": "No file was uploaded"})
		return
	}

	if fileHeader.Size > MaxUploadBytes {
		c.JSON(413, gin.H{"error": "File exceeds the 10 MiB upload limit"})
		return
	}

	kind, err := DetectKind(fileHeader.Header.Get("Content-Type"))
	if err != nil || kind != want {
		c.JSON(415, gin.H{"error": "Unsupported media format"})
		return
	}

	if err := os.MkdirAll(h.TempDir, 0o755); err != nil {
		c.JSON(500, gin.H{"error": "Failed to prepare upload directory"})
		return
	}
	tmpPath := filepath.Join(h.TempDir, fmt.Sprintf("%s%s", uuid.New(), filepath.Ext(fileHeader.Filename)))
	if err := c.SaveUploadedFile(fileHeader, tmpPath); err != nil {
		c.JSON(500, gin.H{"error": "Failed to store uploaded file"})
		return
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			log.Println("Failed to remove temp upload:", err)
		}
	}()

	upload, err := h.Store.Upload(c.Request.Context(), tmpPath, fileHeader.Header.Get("Content-Type"), kind)
	if err != nil {
		log.Println("Upload failed:", err)
		c.JSON(502, gin.H{"error": "Failed to upload media"})
		return
	}

	c.JSON(200, upload)
}

func (h *Handlers) HandleDeleteVideo(c *gin.Context) {
	var json struct {
		PublicID string `json:"public_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&json); err != nil {
		c.JSON(400, gin.H{"error": "public_id is required"})
		return
	}

	err := h.Store.Delete(c.Request.Context(), json.PublicID, KindVideo)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(404, gin.H{"error": "Video not found"})
			return
		}
		log.Println("Delete failed:", err)
		c.JSON(502, gin.H{"error": "Failed to delete video"})
		return
	}

	c.JSON(200, gin.H{"message": "Video deleted"})
}
