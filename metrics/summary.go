package metrics

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// SummaryLine is one flattened sample of a gathered metric family.
type SummaryLine struct {
	Name  string // Metric name with labels, e.g. apm_buffers_total{direction="forward"}
	Value float64
}

// Summary gathers every family from g and flattens it into sorted lines.
// Histograms contribute their _count and _sum.
func Summary(g prometheus.Gatherer) ([]SummaryLine, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	var lines []SummaryLine
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			name := family.GetName() + labelSuffix(metric.GetLabel())

			switch family.GetType() {
			case dto.MetricType_COUNTER:
				lines = append(lines, SummaryLine{Name: name, Value: metric.GetCounter().GetValue()})
			case dto.MetricType_GAUGE:
				lines = append(lines, SummaryLine{Name: name, Value: metric.GetGauge().GetValue()})
			case dto.MetricType_HISTOGRAM:
				h := metric.GetHistogram()
				lines = append(lines,
					SummaryLine{Name: family.GetName() + "_count" + labelSuffix(metric.GetLabel()), Value: float64(h.GetSampleCount())},
					SummaryLine{Name: family.GetName() + "_sum" + labelSuffix(metric.GetLabel()), Value: h.GetSampleSum()},
				)
			case dto.MetricType_UNTYPED:
				lines = append(lines, SummaryLine{Name: name, Value: metric.GetUntyped().GetValue()})
			}
		}
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].Name < lines[j].Name })
	return lines, nil
}

func labelSuffix(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l.GetName()+`="`+l.GetValue()+`"`)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
