package session

import (
	"github.com/rcliao/hole-sync/internal/metric"
	"github.com/rcliao/hole-sync/internal/model"
)

// Selection is the active hole, language and metrics, plus ownership.
// Metric picks which solution slot is edited; RankingMetric picks which
// rankings table is shown.
type Selection struct {
	Hole          string          `json:"hole"`
	Lang          string          `json:"lang"`
	Metric        metric.Metric   `json:"metric"`
	RankingMetric metric.Metric   `json:"scoring"`
	Ownership     model.Ownership `json:"ownership"`
}
