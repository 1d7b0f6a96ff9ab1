package app

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/airq-cli/internal/analysis"
	"github.com/KaramelBytes/airq-cli/internal/model"
)

const homeText = `# PM2.5 Air Quality Analysis

Explore and predict PM2.5 air pollution levels using weather and pollutant data.

### Features
- **Data Overview**: head, shape, data types, summary, missing values and statistics.
- **Exploratory Data Analysis**: visual trends and relationships.
- **Modeling & Prediction**: predict PM2.5 with Linear Regression or Random Forest.

### Background
Air pollution mixes chemicals and particles that harm public health and the
environment. Long exposure raises the risk of stroke, heart disease, lung
cancer and chronic respiratory illness, so forecasting air quality is an
important part of controlling it. Beijing's rapid growth brought serious
pollution problems and, despite recent improvement, they remain a challenge.

### Dataset
Hourly observations from March 2013 to February 2017, covering particulate
matter (PM2.5, PM10), gas pollutants (SO2, NO2, CO, O3) and meteorological
conditions (temperature, pressure, dew point, rain, wind direction and speed).
Pollutant readings come from the Beijing Municipal Environmental Monitoring
Center; weather readings are matched from the nearest China Meteorological
Administration station.`

// monitoringSites are the nationally controlled sites the dataset covers.
var monitoringSites = []string{
	"Aotizhongxin", "Changping", "Dingling", "Dongsi", "Guanyuan", "Gucheng",
	"Huairou", "Nongzhanguan", "Shunyi", "Tiantan", "Wanliu", "Wanshouxigong",
}

// Home returns the landing page text followed by the menus of the
// overview, chart and model selectors.
func (c *Context) Home() string {
	var b strings.Builder
	b.WriteString(homeText)
	b.WriteString("\n\n")
	writeMenu(&b, fmt.Sprintf("Monitoring sites (%d)", len(monitoringSites)), monitoringSites)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "Loaded %d rows (%d usable for modeling).\n\n", c.table.Rows(), c.TrainingRows())
	writeMenu(&b, "Overview options", analysis.OverviewKinds())
	writeMenu(&b, "Charts", analysis.ChartLabels())
	writeMenu(&b, "Models", model.KindLabels())
	return strings.TrimRight(b.String(), "\n")
}

func writeMenu(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "### %s\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}
