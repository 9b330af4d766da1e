package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"phrasecut/internal/dto"
	"phrasecut/internal/response"
	"phrasecut/log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UploadFile stores subtitle files under the upload root and returns their
// local paths for BuildIndex.
func (h Handler) UploadFile(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.R(c, response.Response{
			Error: -1,
			Msg:   "Failed to read upload",
			Data:  nil,
		})
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		response.R(c, response.Response{
			Error: -1,
			Msg:   "No file uploaded",
			Data:  nil,
		})
		return
	}

	uploadRoot := preferredUploadRoot()
	var savedFiles []string
	for _, file := range files {
		savePath := filepath.Join(uploadRoot, filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, savePath); err != nil {
			log.GetLogger().Error("UploadFile save failed", zap.String("file", file.Filename), zap.Error(err))
			response.R(c, response.Response{
				Error: -1,
				Msg:   "Failed to save file: " + file.Filename,
				Data:  nil,
			})
			return
		}
		savedFiles = append(savedFiles, savePath)
	}

	response.R(c, response.Response{
		Error: 0,
		Msg:   "Upload succeeded",
		Data:  dto.UploadFileResData{FilePath: savedFiles},
	})
}

// DownloadFile serves clips and uploads by their "clips/..." or "uploads/..."
// path.
func (h Handler) DownloadFile(c *gin.Context) {
	requestedFile := c.Param("filepath")
	if requestedFile == "" || requestedFile == "/" {
		response.R(c, response.Response{
			Error: -1,
			Msg:   "File path is empty",
			Data:  nil,
		})
		return
	}

	localFilePath, ok := h.resolveDownloadPath(requestedFile)
	if !ok {
		c.JSON(http.StatusForbidden, response.Response{
			Error: -1,
			Msg:   "Invalid file path",
			Data:  nil,
		})
		return
	}
	if info, err := os.Stat(localFilePath); err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, response.Response{
			Error: -1,
			Msg:   "File not found",
			Data:  nil,
		})
		return
	}
	c.FileAttachment(localFilePath, filepath.Base(localFilePath))
}

func (h Handler) Health(c *gin.Context) {
	data := dto.HealthResData{Status: "ok", Media: []string{}}
	if h.Service != nil {
		data.Sources = len(h.Service.Catalog())
	}
	if h.Media != nil {
		data.Media = h.Media.Sources()
	}
	response.Success(c, data)
}
