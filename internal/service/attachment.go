package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"

	"midas/reimbursehub/internal/config"
)

// sniffLen matches mimetype's default read limit.
const sniffLen = 3072

var errAttachmentTooLarge = errors.New("attachment exceeds size limit")

// Attachment is an uploaded receipt. Size is what the client declared and is
// negative when unknown; the actual byte count is enforced while storing.
type Attachment struct {
	FileName string
	Size     int64
	Content  io.Reader
}

type attachmentPolicy struct {
	maxBytes int64
	allowed  []string
}

func newAttachmentPolicy(cfg config.UploadConfig) attachmentPolicy {
	return attachmentPolicy{maxBytes: cfg.MaxBytes, allowed: cfg.AllowedTypes}
}

// inspect rejects a missing, oversized or disallowed receipt before anything is
// written. The returned reader replays the sniffed bytes and fails with
// errAttachmentTooLarge once more than maxBytes have been read through it.
func (p attachmentPolicy) inspect(a *Attachment) (io.Reader, *mimetype.MIME, error) {
	if a == nil || a.Content == nil {
		return nil, nil, fmt.Errorf("%w: receipt is required", ErrInvalidAttachment)
	}
	if a.Size > p.maxBytes {
		return nil, nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrInvalidAttachment, a.Size, p.maxBytes)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(a.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("read receipt: %w", err)
	}
	if n == 0 {
		return nil, nil, fmt.Errorf("%w: receipt is empty", ErrInvalidAttachment)
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	if !p.accepts(mt) {
		return nil, nil, fmt.Errorf("%w: type %s is not accepted", ErrInvalidAttachment, mt.String())
	}

	body := io.MultiReader(bytes.NewReader(head), a.Content)
	return &sizeCap{r: body, left: p.maxBytes}, mt, nil
}

// accepts walks up the detected type's ancestry, so an allowed zip also admits
// zip-based formats mimetype recognises more precisely.
func (p attachmentPolicy) accepts(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		for _, allowed := range p.allowed {
			if m.Is(allowed) {
				return true
			}
		}
	}
	return false
}

type sizeCap struct {
	r    io.Reader
	left int64
}

func (c *sizeCap) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.left -= int64(n)
	if c.left < 0 {
		return n, errAttachmentTooLarge
	}
	return n, err
}
