package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/glinharesb/sm2-server/internal/audit"
)

// Request and response bodies. Field names match the JSON exchanged with
// existing clients.
type (
	keypairResponse struct {
		PrivateKey string `json:"privateKey"`
		PublicKey  string `json:"publicKey"`
	}

	rawSignatureRequest struct {
		PrivateKey *string `json:"privateKey"`
		Raw        *string `json:"raw"`
	}

	digestSignatureRequest struct {
		PrivateKey *string `json:"privateKey"`
		Digest     *string `json:"digest"`
	}

	signatureResponse struct {
		Signature string `json:"signature"`
	}

	rawVerificationRequest struct {
		PublicKey *string `json:"publicKey"`
		Signature *string `json:"signature"`
		Raw       *string `json:"raw"`
	}

	digestVerificationRequest struct {
		PublicKey *string `json:"publicKey"`
		Signature *string `json:"signature"`
		Digest    *string `json:"digest"`
	}

	verificationResponse struct {
		Result bool `json:"result"`
	}
)

const defaultAuditLimit = 100

func getPingHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	}
}

func postKeypairHandler(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		kp, err := s.signer.Keypair(c.Request().Context())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, keypairResponse{
			PrivateKey: kp.PrivateKey,
			PublicKey:  kp.PublicKey,
		})
	}
}

func postRawSignatureHandler(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body rawSignatureRequest
		if err := bindBody(c, &body); err != nil {
			return err
		}
		if err := requireFields(field{"privateKey", body.PrivateKey}, field{"raw", body.Raw}); err != nil {
			return err
		}

		sig, err := s.signer.SignRaw(c.Request().Context(), *body.PrivateKey, *body.Raw)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, signatureResponse{Signature: sig})
	}
}

func postDigestSignatureHandler(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body digestSignatureRequest
		if err := bindBody(c, &body); err != nil {
			return err
		}
		if err := requireFields(field{"privateKey", body.PrivateKey}, field{"digest", body.Digest}); err != nil {
			return err
		}

		sig, err := s.signer.SignDigest(c.Request().Context(), *body.PrivateKey, *body.Digest)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, signatureResponse{Signature: sig})
	}
}

func postRawVerificationHandler(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body rawVerificationRequest
		if err := bindBody(c, &body); err != nil {
			return err
		}
		if err := requireFields(field{"publicKey", body.PublicKey}, field{"signature", body.Signature}, field{"raw", body.Raw}); err != nil {
			return err
		}

		ok, err := s.signer.VerifyRaw(c.Request().Context(), *body.PublicKey, *body.Signature, *body.Raw)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, verificationResponse{Result: ok})
	}
}

func postDigestVerificationHandler(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body digestVerificationRequest
		if err := bindBody(c, &body); err != nil {
			return err
		}
		if err := requireFields(field{"publicKey", body.PublicKey}, field{"signature", body.Signature}, field{"digest", body.Digest}); err != nil {
			return err
		}

		ok, err := s.signer.VerifyDigest(c.Request().Context(), *body.PublicKey, *body.Signature, *body.Digest)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, verificationResponse{Result: ok})
	}
}

func getAuditHandler(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		filter := audit.Filter{
			Operation: c.QueryParam("operation"),
			Subject:   c.QueryParam("subject"),
			Limit:     defaultAuditLimit,
		}
		if v := c.QueryParam("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
			}
			filter.Limit = n
		}

		entries := s.audit.Query(filter)
		if entries == nil {
			entries = []audit.Entry{}
		}
		return c.JSON(http.StatusOK, entries)
	}
}

func bindBody(c echo.Context, body any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

type field struct {
	name  string
	value *string
}

// requireFields fails on the first field absent from the body. An empty
// string is present and is passed on as is.
func requireFields(fields ...field) error {
	for _, f := range fields {
		if f.value == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "missing field: "+f.name)
		}
	}
	return nil
}
