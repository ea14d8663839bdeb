package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"midas/reimbursehub/internal/service"
	"midas/reimbursehub/pkg/response"
)

// multipartOverhead leaves room for the form fields and part headers around the receipt.
const multipartOverhead = 1 << 20

type ReimbursementHandler struct {
	reimbursementService service.ReimbursementService
	maxUploadBytes       int64
}

func NewReimbursementHandler(reimbursementService service.ReimbursementService, maxUploadBytes int64) *ReimbursementHandler {
	return &ReimbursementHandler{
		reimbursementService: reimbursementService,
		maxUploadBytes:       maxUploadBytes,
	}
}

// Submit accepts multipart/form-data with a reimbursement_details field and a
// receipt file, and responds with the classifier's decision.
func (h *ReimbursementHandler) Submit(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)

	// FormFile parses the whole form, so a body over the cap surfaces here first.
	var req service.SubmitRequest
	fh, err := c.FormFile("receipt")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			writeError(c, fmt.Errorf("open upload: %w", err), "failed to read receipt")
			return
		}
		defer f.Close()
		req.Receipt = &service.Attachment{FileName: fh.Filename, Size: fh.Size, Content: f}
	case isBodyTooLarge(err):
		writeError(c, fmt.Errorf("%w: request body too large", service.ErrInvalidAttachment), "")
		return
	}

	req.Details = c.PostForm("reimbursement_details")

	record, err := h.reimbursementService.Submit(c.Request.Context(), identity, req)
	if err != nil {
		writeError(c, err, "failed to submit reimbursement")
		return
	}

	response.Created(c, gin.H{
		"id":       record.ID,
		"status":   record.Status,
		"feedback": record.Feedback,
	})
}

func (h *ReimbursementHandler) ListMine(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	reqs, err := h.reimbursementService.ListForUser(c.Request.Context(), identity)
	if err != nil {
		writeError(c, err, "failed to list reimbursements")
		return
	}

	response.Success(c, reqs)
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
