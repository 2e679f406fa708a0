package handler

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"loanops/internal/service"
)

// downloadURLExpiry bounds presigned document links.
const downloadURLExpiry = 15 * time.Minute

// UploadDocument stores a multipart upload (fields: file, category).
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		appID, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		cat := c.FormValue("category")
		if cat == "" {
			return writeError(c, fiber.StatusBadRequest, "CATEGORY_REQUIRED", "category is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		res, err := svc.Upload(c.UserContext(), service.UploadInput{
			ApplicationID: appID,
			Category:      cat,
			Filename:      fh.Filename,
			ContentType:   ct,
			Size:          fh.Size,
			Body:          f,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// ListDocuments lists an application's documents.
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		appID, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		docs, err := svc.ListByApplication(c.UserContext(), appID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"items": docs, "total": len(docs)})
	}
}

// ListRequirements lists the resolved requirements with their tracked status.
func ListRequirements(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		appID, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		reqs, err := svc.Requirements(c.UserContext(), appID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"items": reqs})
	}
}

// GetDocument returns document metadata.
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(doc)
	}
}

// DownloadURL returns a presigned link to the document content.
func DownloadURL(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		url, err := svc.DownloadURL(c.UserContext(), id, downloadURLExpiry)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"url":        url,
			"expires_in": int(downloadURLExpiry.Seconds()),
		})
	}
}

// DownloadContent streams the document content.
func DownloadContent(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		rc, doc, err := svc.Open(c.UserContext(), id)
		if err != nil {
			return err
		}
		if doc.ContentType != "" {
			c.Set(fiber.HeaderContentType, doc.ContentType)
		}
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Filename))
		// fasthttp closes the stream once the body is written.
		if doc.Size > 0 {
			return c.SendStream(rc, int(doc.Size))
		}
		return c.SendStream(rc)
	}
}

// DeleteDocument removes a document that has not been accepted.
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		res, err := svc.Delete(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// AcceptDocument marks a document accepted.
func AcceptDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		res, err := svc.Accept(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// RejectDocument marks a document rejected. The body carries the reason.
func RejectDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		var req rejectRequest
		if err := parseOptionalBody(c, &req); err != nil {
			return invalidBody(c)
		}
		res, err := svc.Reject(c.UserContext(), id, req.Reason)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// ReprocessDocument re-runs job creation for a stored document.
func ReprocessDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		out, err := svc.Reprocess(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusAccepted).JSON(out)
	}
}
