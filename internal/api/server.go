package api

import (
	"crypto/rsa"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/rvbcrs/unifi-firmware-tool/internal/logger"
	"github.com/rvbcrs/unifi-firmware-tool/pkg/firmware"
)

// DefaultMaxImageBytes bounds uploaded image size; real images sit well
// under 64 MiB.
const DefaultMaxImageBytes int64 = 64 << 20

// Server exposes image verification endpoints.
type Server struct {
	log      logger.Logger
	key      *rsa.PublicKey
	maxBytes int64
}

// NewServer creates a server. key may be nil, in which case RSA blocks are
// reported but not verified. maxBytes <= 0 selects DefaultMaxImageBytes.
func NewServer(log logger.Logger, key *rsa.PublicKey, maxBytes int64) *Server {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &Server{log: log, key: key, maxBytes: maxBytes}
}

// Register mounts the API routes.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealthz)
	e.POST("/v1/images/verify", s.handleVerify)
	e.POST("/v1/images/report", s.handleReport)
}

func (s *Server) handleHealthz(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// VerifyResponse is the compact verdict for an uploaded image.
type VerifyResponse struct {
	Valid          bool            `json:"valid"`
	SignatureValid bool            `json:"signature_valid"`
	RSA            string          `json:"rsa"`
	Segments       []SegmentVerify `json:"segments"`
}

type SegmentVerify struct {
	Name     string `json:"name"`
	CRCValid bool   `json:"crc_valid"`
}

func (s *Server) handleVerify(c *echo.Context) error {
	container, err := s.decodeBody(c)
	if err != nil || container == nil {
		return err
	}

	resp := VerifyResponse{
		Valid:          container.Valid(),
		SignatureValid: container.Signature.Valid,
		RSA:            container.Signature.RSA.String(),
		Segments:       make([]SegmentVerify, 0, len(container.Segments)),
	}
	for i := range container.Segments {
		resp.Segments = append(resp.Segments, SegmentVerify{
			Name:     container.Segments[i].Name,
			CRCValid: container.Segments[i].CRCValid,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleReport(c *echo.Context) error {
	container, err := s.decodeBody(c)
	if err != nil || container == nil {
		return err
	}

	report := NewImageReport(container)
	report.ID = "img_" + uuid.NewString()
	body, err := report.Encode()
	if err != nil {
		return writeErr(c, http.StatusInternalServerError, "internal_error", err.Error())
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
}

// decodeBody reads and decodes the uploaded image. On failure it writes
// the error response itself and returns a nil container.
func (s *Server) decodeBody(c *echo.Context) (*firmware.Container, error) {
	body := http.MaxBytesReader(c.Response(), c.Request().Body, s.maxBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, writeErr(c, http.StatusRequestEntityTooLarge, "image_too_large", err.Error())
		}
		return nil, writeErr(c, http.StatusBadRequest, "read_error", err.Error())
	}

	container, err := firmware.Decode(data, &firmware.DecodeOptions{PublicKey: s.key})
	if err != nil {
		s.log.Warn("decode failed", "error", err)
		return nil, writeErr(c, http.StatusUnprocessableEntity, decodeErrType(err), err.Error())
	}
	return container, nil
}
