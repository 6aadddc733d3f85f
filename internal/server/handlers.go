package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/Sumatoshi-tech/chartfang/pkg/backend"
	"github.com/Sumatoshi-tech/chartfang/pkg/lastfm"
	"github.com/Sumatoshi-tech/chartfang/pkg/plotpage"
	"github.com/Sumatoshi-tech/chartfang/pkg/render"
	"github.com/Sumatoshi-tech/chartfang/pkg/report"
	"github.com/Sumatoshi-tech/chartfang/pkg/rolling"
	"github.com/Sumatoshi-tech/chartfang/pkg/timeframe"
)

const (
	dateLayout   = "2006-01-02"
	htmlMimeType = "text/html; charset=utf-8"
)

// errBadRequest marks request validation failures.
var errBadRequest = errors.New("bad request")

func missingParam(name string) error {
	return fmt.Errorf("%w: Parameter '%s' is missing", errBadRequest, name)
}

func (s *Server) getWeeklyChart(c *gin.Context) {
	user := strings.ToLower(strings.TrimSpace(c.Query(backend.ParamUsername)))
	rawKind := strings.ToLower(c.Query(backend.ParamChartType))
	rawFrom := c.Query(backend.ParamFromDate)
	rawTo := c.Query(backend.ParamToDate)

	for _, p := range []struct{ name, value string }{
		{backend.ParamUsername, user},
		{backend.ParamChartType, rawKind},
		{backend.ParamFromDate, rawFrom},
		{backend.ParamToDate, rawTo},
	} {
		if p.value == "" {
			s.fail(c, missingParam(p.name))

			return
		}
	}

	kind, err := lastfm.ParseKind(rawKind)
	if err != nil {
		s.fail(c, err)

		return
	}

	fromUnix, fromErr := strconv.ParseInt(rawFrom, 10, 64)
	toUnix, toErr := strconv.ParseInt(rawTo, 10, 64)

	if fromErr != nil || toErr != nil {
		s.fail(c, fmt.Errorf("%w: Date must be presented in Unix format", errBadRequest))

		return
	}

	to := time.Unix(toUnix, 0).UTC()

	entries, err := s.charts.WeeklyChart(c.Request.Context(), user, kind, time.Unix(fromUnix, 0).UTC(), to)
	if err != nil {
		s.fail(c, fmt.Errorf("failed to get chart for week starting at %s: %w", to.Format(dateLayout), err))

		return
	}

	c.JSON(http.StatusOK, backend.NewWeeklyChartResponse(entries, to))
}

func (s *Server) getInfo(c *gin.Context) {
	user := strings.ToLower(strings.TrimSpace(c.Query(backend.ParamUsername)))
	if user == "" {
		s.fail(c, missingParam(backend.ParamUsername))

		return
	}

	info, err := s.charts.UserInfo(c.Request.Context(), user)
	if err != nil {
		s.fail(c, fmt.Errorf("failed to get user info: %w", err))

		return
	}

	c.JSON(http.StatusOK, backend.UserInfoResponse{
		Name:         info.Name,
		RealName:     info.RealName,
		URL:          info.URL,
		Country:      info.Country,
		PlayCount:    info.PlayCount,
		RegisteredAt: info.RegisteredAt.Unix(),
	})
}

func (s *Server) getSeries(c *gin.Context) {
	rep, ok := s.buildReport(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, rep)
}

func (s *Server) getChart(c *gin.Context) {
	theme, err := plotpage.ParseTheme(c.Query(backend.ParamTheme))
	if err != nil {
		s.fail(c, err)

		return
	}

	rep, ok := s.buildReport(c)
	if !ok {
		return
	}

	var buf bytes.Buffer

	err = render.Plot(&buf, rep, theme)
	if err != nil {
		s.fail(c, err)

		return
	}

	c.Data(http.StatusOK, htmlMimeType, buf.Bytes())
}

func (s *Server) buildReport(c *gin.Context) (*report.Report, bool) {
	req, err := s.reportRequest(c.Request.URL.Query())
	if err != nil {
		s.fail(c, err)

		return nil, false
	}

	rep, err := s.builder.Build(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)

		return nil, false
	}

	return rep, true
}

// reportRequest reads a report request, falling back to the configured chart
// defaults for absent parameters.
func (s *Server) reportRequest(q url.Values) (report.Request, error) {
	req := report.Request{
		Subject:   strings.ToLower(q.Get(backend.ParamUsername)),
		Kind:      lastfm.ChartKind(strings.ToLower(q.Get(backend.ParamChartType))),
		Timeframe: timeframe.Timeframe(strings.ToLower(q.Get(backend.ParamTimeframe))),
	}

	if strings.TrimSpace(req.Subject) == "" {
		return report.Request{}, missingParam(backend.ParamUsername)
	}

	if req.Kind == "" {
		req.Kind = lastfm.ChartKind(s.cfg.Chart.Kind)
	}

	if req.Timeframe == "" {
		req.Timeframe = timeframe.Timeframe(s.cfg.Chart.Timeframe)
	}

	req.TopN = s.cfg.Chart.Top

	if raw := q.Get(backend.ParamTop); raw != "" {
		top, err := strconv.Atoi(raw)
		if err != nil || top < 1 {
			return report.Request{}, fmt.Errorf("%w: Parameter '%s' must be a positive integer", errBadRequest, backend.ParamTop)
		}

		req.TopN = top
	}

	return req, nil
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)

	_ = c.Error(err)

	if status >= http.StatusInternalServerError {
		s.logger.WarnContext(c.Request.Context(), "request failed",
			"path", c.Request.URL.Path,
			"status", status,
			"error", err,
		)
	}

	c.AbortWithStatusJSON(status, backend.ErrorResponse{Error: errorMessage(err)})
}

// statusFor maps caller mistakes to 400 and upstream trouble to 502.
func statusFor(err error) int {
	var apiErr *lastfm.APIError

	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, lastfm.ErrEmptyUser),
		errors.Is(err, lastfm.ErrUnknownChartKind),
		errors.Is(err, timeframe.ErrInvalidTimeframe),
		errors.Is(err, rolling.ErrInvalidTopN),
		errors.Is(err, report.ErrEmptySubject),
		errors.Is(err, report.ErrFutureRequest),
		errors.Is(err, plotpage.ErrUnknownTheme):
		return http.StatusBadRequest
	case errors.As(err, &apiErr),
		errors.Is(err, rolling.ErrMalformedSnapshot),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

func errorMessage(err error) string {
	msg := err.Error()

	prefix := errBadRequest.Error() + ": "
	if strings.HasPrefix(msg, prefix) {
		return strings.TrimPrefix(msg, prefix)
	}

	first, size := utf8.DecodeRuneInString(msg)
	if size == 0 {
		return msg
	}

	return string(unicode.ToUpper(first)) + msg[size:]
}
