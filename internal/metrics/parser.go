// Copyright sfrouting Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/common/expfmt"
)

// SumGaugeByLabel parses a Prometheus text-exposition response and sums
// the named gauge metric across every series whose label matches one
// of labelValues. Used by operational tooling checking, e.g., total
// handler-table occupancy across tables without scraping each agent's
// internal state directly.
func SumGaugeByLabel(stats io.Reader, metricName, labelName string, labelValues []string) (float64, error) {
	if stats == nil {
		return 0, fmt.Errorf("stats input was nil")
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(stats)
	if err != nil {
		return 0, fmt.Errorf("parsing prometheus text format failed: %w", err)
	}

	family, ok := families[metricName]
	if !ok {
		return 0, fmt.Errorf("metric %q not found in result", metricName)
	}

	var sum float64
	for _, metric := range family.Metric {
		for _, label := range metric.Label {
			if label.GetName() != labelName {
				continue
			}
			for _, want := range labelValues {
				if label.GetValue() == want {
					sum += metric.GetGauge().GetValue()
				}
			}
		}
	}
	return sum, nil
}
