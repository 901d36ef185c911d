package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/coc-extractor/constants"
	"github.com/joseph-ayodele/coc-extractor/internal/common"
)

// handleExtract accepts a multipart PDF upload in the "file" field and
// returns the three-section extraction result. With ?format=xlsx the result
// is returned as a workbook instead.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	maxBytes := int64(s.cfg.MaxFileSizeMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	path, name, err := s.saveUpload(r)
	if err != nil {
		s.logger.Warn("server.extract.rejected",
			"req_id", common.RequestID(ctx), "err", err)
		writeError(w, err)
		return
	}
	defer os.Remove(path)

	resp, err := s.pipeline.Process(ctx, path)
	if err != nil {
		s.logger.Error("server.extract.failed",
			"req_id", common.RequestID(ctx), "file", name, "err", err)
		writeError(w, err)
		return
	}

	s.logger.Info("server.extract.ok",
		"req_id", common.RequestID(ctx),
		"file", name,
		"fields", len(resp.ExtractedFields),
		"samples", len(resp.SampleDataInformation),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if r.URL.Query().Get("format") == "xlsx" {
		b, err := s.exporter.ExportSamplesXLSX(resp)
		if err != nil {
			writeError(w, common.NewAppError(common.KindInternal, "workbook export failed", err))
			return
		}
		w.Header().Set("Content-Type",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", xlsxName(name)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// saveUpload spools the multipart file to a temp path the renderer can read.
func (s *Server) saveUpload(r *http.Request) (path, name string, err error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", common.NewAppError(common.KindInvalidInput,
			"multipart field \"file\" is required", err)
	}
	defer file.Close()

	if !constants.IsAllowedExt(filepath.Ext(header.Filename)) {
		return "", "", common.NewAppError(common.KindInvalidInput,
			fmt.Sprintf("unsupported file type %q", filepath.Ext(header.Filename)), nil)
	}

	tmp, err := os.CreateTemp("", "coc-upload-*.pdf")
	if err != nil {
		return "", "", common.NewAppError(common.KindInternal, "cannot spool upload", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		os.Remove(tmp.Name())
		return "", "", common.NewAppError(common.KindInvalidInput, "upload truncated", err)
	}
	return tmp.Name(), header.Filename, nil
}

func xlsxName(upload string) string {
	base := filepath.Base(upload)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)] + "_results.xlsx"
}
