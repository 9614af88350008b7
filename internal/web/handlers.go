package web

import (
	"encoding/json"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ppd-pricemap/internal/output"
)

// District codes are short alphanumerics; anything else is rejected before
// it can reach the filesystem.
var reDistrictCode = regexp.MustCompile(`^[A-Z0-9]{1,8}$`)

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, output.SummaryPath(s.config.DataDir), "application/geo+json")
}

func (s *Server) getTrend(w http.ResponseWriter, r *http.Request) {
	code, ok := districtCode(r)
	if !ok {
		http.Error(w, "invalid district code", http.StatusBadRequest)
		return
	}
	s.serveFile(w, output.TrendPath(s.config.DataDir, code), "application/json")
}

func (s *Server) getSales(w http.ResponseWriter, r *http.Request) {
	code, ok := districtCode(r)
	if !ok {
		http.Error(w, "invalid district code", http.StatusBadRequest)
		return
	}
	s.serveFile(w, output.SalesDir(s.config.DataDir)+"/"+code+".json", "application/json")
}

// getStats reports what the data directory currently holds.
func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats := struct {
		Districts  int  `json:"districts"`
		SalesFiles int  `json:"salesFiles"`
		HasSummary bool `json:"hasSummary"`
	}{
		Districts:  countJSONFiles(s.config.DataDir + "/trends"),
		SalesFiles: countJSONFiles(output.SalesDir(s.config.DataDir)),
	}
	if _, err := os.Stat(output.SummaryPath(s.config.DataDir)); err == nil {
		stats.HasSummary = true
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (s *Server) serveFile(w http.ResponseWriter, path, contentType string) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("failed to read artifact", "path", path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func districtCode(r *http.Request) (string, bool) {
	code := strings.ToUpper(mux.Vars(r)["code"])
	return code, reDistrictCode.MatchString(code)
}

func countJSONFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			count++
		}
	}
	return count
}
