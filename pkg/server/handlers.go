package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/matzehuels/isomill/pkg/buildinfo"
	ierrors "github.com/matzehuels/isomill/pkg/errors"
	strokeio "github.com/matzehuels/isomill/pkg/io"
	"github.com/matzehuels/isomill/pkg/pipeline"
	"github.com/matzehuels/isomill/pkg/raster"
	"github.com/matzehuels/isomill/pkg/render/preview"
)

// Response formats for /v1/toolpaths.
const (
	FormatGCode   = "gcode"
	FormatJSON    = "json"
	FormatStrokes = "strokes"
	FormatPNG     = "png"
)

// HeaderJobID carries the job identifier on every toolpath response.
const HeaderJobID = "X-Job-ID"

type errorResponse struct {
	Error string       `json:"error"`
	Code  ierrors.Code `json:"code,omitempty"`
	JobID string       `json:"job_id,omitempty"`
}

type jobResponse struct {
	JobID      string         `json:"job_id"`
	RasterHash string         `json:"raster_hash"`
	Cached     bool           `json:"cached"`
	Stats      pipeline.Stats `json:"stats"`
	GCode      string         `json:"gcode"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleToolpaths(w http.ResponseWriter, r *http.Request) {
	jobID := uuid.NewString()
	w.Header().Set(HeaderJobID, jobID)
	logger := s.logger.With("job", jobID)

	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = FormatGCode
	}
	if err := ierrors.ValidateOneOf("format", format, FormatGCode, FormatJSON, FormatStrokes, FormatPNG); err != nil {
		s.writeError(w, jobID, err)
		return
	}

	opts, err := OptionsFromQuery(q, *s.cfg.Defaults)
	if err != nil {
		s.writeError(w, jobID, err)
		return
	}
	opts.Logger = logger

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: fmt.Sprintf("image exceeds %d bytes", tooLarge.Limit),
				JobID: jobID,
			})
			return
		}
		s.writeError(w, jobID, ierrors.Wrap(ierrors.ErrCodeIO, err, "read request body"))
		return
	}
	img, imgFormat, err := raster.DecodeLimit(bytes.NewReader(body), s.cfg.MaxPixels)
	if err != nil {
		s.writeError(w, jobID, err)
		return
	}
	logger.Info("job received", "format", imgFormat, "width", img.Width(), "height", img.Height())

	res, err := s.runner.Execute(r.Context(), img, opts)
	if err != nil {
		s.writeError(w, jobID, err)
		return
	}
	w.Header().Set("X-Cache", cacheStatus(res.CacheHit))

	switch format {
	case FormatJSON:
		writeJSON(w, http.StatusOK, jobResponse{
			JobID:      jobID,
			RasterHash: res.RasterHash,
			Cached:     res.CacheHit,
			Stats:      res.Stats,
			GCode:      string(res.GCode),
		})
	case FormatStrokes:
		var buf bytes.Buffer
		if err := strokeio.WriteStrokes(res.Strokes, opts.Settings().Units(), &buf); err != nil {
			s.writeError(w, jobID, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(buf.Bytes())
	case FormatPNG:
		var buf bytes.Buffer
		if err := preview.WritePNG(&buf, res.Strokes, preview.Options{ShowTravel: true}); err != nil {
			s.writeError(w, jobID, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", jobID+".nc"))
		_, _ = w.Write(res.GCode)
	}
}

func cacheStatus(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// OptionsFromQuery overlays query parameters on base. Keys match the JSON
// job file keys. Malformed values fail with INVALID_CONFIG.
func OptionsFromQuery(q url.Values, base pipeline.Options) (pipeline.Options, error) {
	opts := base
	if v := q.Get("mode"); v != "" {
		opts.Mode = v
	}

	bools := map[string]*bool{
		"absolute": &opts.Absolute,
		"metric":   &opts.Metric,
		"refresh":  &opts.Refresh,
	}
	for key, dst := range bools {
		v := q.Get(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, ierrors.New(ierrors.ErrCodeInvalidConfig, "%s: not a boolean: %q", key, v)
		}
		*dst = b
	}

	floats := map[string]*float64{
		"z_clearance":      &opts.ZClearance,
		"z_cutting_height": &opts.ZCuttingHeight,
		"absolute_x_start": &opts.AbsoluteXStart,
		"absolute_y_start": &opts.AbsoluteYStart,
		"plunge_feedrate":  &opts.PlungeFeedrate,
		"milling_feedrate": &opts.MillingFeedrate,
		"resolution":       &opts.Resolution,
		"origin_x":         &opts.OriginX,
		"origin_y":         &opts.OriginY,
		"start_x":          &opts.StartX,
		"start_y":          &opts.StartY,
		"tolerance":        &opts.Tolerance,
	}
	for key, dst := range floats {
		v := q.Get(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, ierrors.New(ierrors.ErrCodeInvalidConfig, "%s: not a number: %q", key, v)
		}
		*dst = f
	}
	return opts, nil
}

func (s *Server) writeError(w http.ResponseWriter, jobID string, err error) {
	status := http.StatusInternalServerError
	switch ierrors.GetCode(err) {
	case ierrors.ErrCodeInvalidConfig, ierrors.ErrCodeInvalidRaster:
		status = http.StatusBadRequest
	}
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	if status >= 500 {
		s.logger.Error("job failed", "job", jobID, "err", err)
	}
	writeJSON(w, status, errorResponse{
		Error: ierrors.UserMessage(err),
		Code:  ierrors.GetCode(err),
		JobID: jobID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
