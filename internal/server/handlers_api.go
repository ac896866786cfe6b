package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/tickerpulse/internal/domain"
	apperrors "github.com/pscheid92/tickerpulse/internal/errors"
)

const maxLookupQuery = 64

type lookupResponse struct {
	Results []domain.SymbolMatch `json:"results"`
}

type peersResponse struct {
	Peers map[domain.Symbol]string `json:"peers"`
}

func (s *Server) handleSymbolLookup(c echo.Context) error {
	query := strings.TrimSpace(c.Param("query"))
	if query == "" || len(query) > maxLookupQuery {
		return apperrors.ValidationError("query must be 1 to 64 characters")
	}
	if s.directory == nil {
		return apperrors.UnavailableError("symbol lookup is not configured", nil)
	}

	results, err := s.directory.LookupSymbols(c.Request().Context(), query)
	if err != nil {
		return err
	}
	if results == nil {
		results = []domain.SymbolMatch{}
	}

	return writeJSON(c, http.StatusOK, lookupResponse{Results: results})
}

func (s *Server) handleCompanyPeers(c echo.Context) error {
	symbol, err := domain.ParseSymbol(c.Param("symbol"))
	if err != nil {
		return apperrors.ValidationError("invalid symbol").WithContext("symbol", c.Param("symbol"))
	}
	if s.directory == nil {
		return apperrors.UnavailableError("company peers are not configured", nil)
	}

	peers, err := s.directory.CompanyPeers(c.Request().Context(), symbol)
	if err != nil {
		return err
	}
	if peers == nil {
		peers = map[domain.Symbol]string{}
	}

	return writeJSON(c, http.StatusOK, peersResponse{Peers: peers})
}
