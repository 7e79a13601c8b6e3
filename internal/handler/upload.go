package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/kassaio/kassa/internal/errHandler"
	"github.com/kassaio/kassa/internal/file"
	"github.com/kassaio/kassa/internal/response"
)

type UploadHandler struct {
	FileUploader *file.FileUploader
	ErrHandler   *errHandler.ErrorRepository
}

func NewUploadHandler(handler *UploadHandler) *UploadHandler {
	return &UploadHandler{
		FileUploader: handler.FileUploader,
		ErrHandler:   handler.ErrHandler,
	}
}

// HandleUploadReceipt stores a payment receipt in cloud storage and hands the
// URL back; clients then attach it to a deposit as receipt_url.
func (h *UploadHandler) HandleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	err := r.ParseMultipartForm(10 << 20) // 10 MB
	if err != nil {
		message := errors.New("invalid request data")
		h.ErrHandler.BadRequest(w, r, message)
		return
	}

	upload, header, err := r.FormFile("file")
	if err != nil {
		message := errors.New("error retrieving the file")
		h.ErrHandler.BadRequest(w, r, message)
		return
	}
	defer upload.Close()

	fileExtension := filepath.Ext(header.Filename)

	// Save the file temporarily to the server
	tempFile, err := os.CreateTemp("", fmt.Sprintf("receipt-*%s", fileExtension))
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	defer tempFile.Close()
	defer os.Remove(tempFile.Name())

	_, err = tempFile.ReadFrom(upload)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	fileUrl, err := h.FileUploader.UploadFile(tempFile.Name())
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	message := "Receipt uploaded successfully"
	err = response.JSONOkResponse(w, fileUrl, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
