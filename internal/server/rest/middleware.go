package rest

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/kwarc/cheatsheets/internal/common"
	"github.com/kwarc/cheatsheets/internal/server/auth"
	"github.com/kwarc/cheatsheets/internal/server/services"
)

const (
	headerRequestID = "X-Request-ID"

	localIdentity  = "identity"
	localRequestID = "request_id"
)

// accessLogFormat is rendered by fiber's logger middleware once the error
// handler has set the final status.
const accessLogFormat = "${time} ${locals:request_id} ${status} ${method} ${path} ${latency}"

func (s *RESTServer) accessLog() fiber.Handler {
	return logger.New(logger.Config{
		Format:        accessLogFormat,
		TimeFormat:    time.RFC3339,
		TimeZone:      "UTC",
		Output:        io.Discard,
		DisableColors: true,
		Done: func(c *fiber.Ctx, line []byte) {
			s.logger.Info(c.UserContext(), "request", "access", string(line))
		},
	})
}

func requestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     headerRequestID,
		Generator:  uuid.NewString,
		ContextKey: localRequestID,
	})
}

func bearerToken(c *fiber.Ctx) string {
	parts := strings.Fields(c.Get(common.AuthorizationHeaderName))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func (s *RESTServer) authenticate(c *fiber.Ctx) error {
	tok := bearerToken(c)
	if tok == "" {
		return common.ErrorUnauthorized
	}
	id, err := auth.ParseToken(tok, s.jwtSecret)
	if err != nil {
		return err
	}
	if s.opts.TrustInstructorHeader {
		if v, err := strconv.ParseBool(c.Get(common.InstructorHeaderName)); err == nil && v {
			id.Instructor = true
		}
	}
	c.Locals(localIdentity, id)
	return c.Next()
}

func identityOf(c *fiber.Ctx) auth.Identity {
	id, _ := c.Locals(localIdentity).(auth.Identity)
	return id
}

func callerOf(c *fiber.Ctx) services.Caller {
	id := identityOf(c)
	return services.Caller{UserID: id.UserID, Instructor: id.Instructor}
}
