// Package handlers exposes the PastelFeed JSON API on Fiber.
package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"pastelfeed/internal/common"
	"pastelfeed/internal/filestore"
)

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// parseAndValidate decodes the body into req and validates it. Both
// failures are InvalidInput.
func parseAndValidate(c *fiber.Ctx, v *validator.Validate, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return common.InvalidInput("Invalid request body")
	}
	if err := v.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
			return common.InvalidInput("Invalid request body")
		}
		e := validationErrors[0]
		if e.Tag() == "required" {
			return common.InvalidInput("Missing required field '%s'", e.Field())
		}
		return common.InvalidInput("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return nil
}

// respondError writes the JSON error body for the known error kinds and
// hands everything else to the application error handler.
func respondError(c *fiber.Ctx, err error) error {
	var status int
	switch {
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrConflict):
		status = fiber.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.Is(err, common.ErrNotFound):
		status = fiber.StatusNotFound
	default:
		return err
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// formUpload opens the multipart file in field. The caller closes the
// returned file.
func formUpload(c *fiber.Ctx, field string) (filestore.Upload, multipart.File, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return filestore.Upload{}, nil, common.InvalidInput("No file uploaded")
	}
	f, err := fh.Open()
	if err != nil {
		return filestore.Upload{}, nil, fmt.Errorf("failed to open upload: %w", err)
	}
	return filestore.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	}, f, nil
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// ErrorHandler is the application-wide Fiber error handler. API requests get
// a JSON error; internal detail is only included outside production. Other
// requests are redirected to the home page.
func ErrorHandler(log *logrus.Logger, production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		entry := log.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
			"status": code,
		})
		if code >= fiber.StatusInternalServerError {
			entry.Error("Request failed")
		} else {
			entry.Warn("Request rejected")
		}

		if !isAPIPath(c.Path()) {
			if c.Path() == "/" {
				return c.Status(code).SendString(fiber.ErrInternalServerError.Message)
			}
			return c.Redirect("/")
		}

		if code < fiber.StatusInternalServerError {
			return c.Status(code).JSON(fiber.Map{"error": fe.Message})
		}
		body := fiber.Map{"error": "Internal server error"}
		if !production {
			body["message"] = err.Error()
		}
		return c.Status(code).JSON(body)
	}
}

// APINotFound answers any unmatched /api path.
func APINotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "API route not found",
		"path":  c.OriginalURL(),
	})
}
