package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/medreports/internal/common"
	"github.com/joseph-ayodele/medreports/internal/compare"
	"github.com/joseph-ayodele/medreports/internal/extract"
	"github.com/joseph-ayodele/medreports/internal/summary"
)

type analyzeRequest struct {
	Text string `json:"text"`
}

type compareRequest struct {
	Vitals extract.Vitals `json:"vitals"`
	Gender string         `json:"gender"`
}

type compareResponse struct {
	Comparison   []compare.Entry `json:"comparison_table"`
	Observations []string        `json:"observations"`
	Conclusion   string          `json:"conclusion"`
}

// analyze runs the text stages without storing anything.
func (h *handlers) analyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return common.InvalidInputf("invalid request body")
	}
	return c.JSON(http.StatusOK, h.Analyzer.Analyze(req.Text))
}

func (h *handlers) compare(c echo.Context) error {
	var req compareRequest
	if err := c.Bind(&req); err != nil {
		return common.InvalidInputf("invalid request body")
	}
	entries := h.Analyzer.Compare(req.Vitals, req.Gender)
	if entries == nil {
		entries = []compare.Entry{}
	}
	return c.JSON(http.StatusOK, compareResponse{
		Comparison:   entries,
		Observations: summary.GenerateObservations(entries),
		Conclusion:   summary.GenerateConclusion(entries),
	})
}
